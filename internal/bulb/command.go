package bulb

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

type command struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

func newCommand(id int, method string, params ...any) command {
	if params == nil {
		params = []any{}
	}
	return command{ID: id, Method: method, Params: params}
}

// String encodes the command as one protocol line.
func (c *command) String() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", eris.Wrap(err, "failed to marshal bulb command")
	}
	return string(b) + lineEnding, nil
}

type commandError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *commandError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

type commandResult struct {
	ID     *int          `json:"id"`
	Method string        `json:"method"`
	Result []any         `json:"result"`
	Error  *commandError `json:"error"`
}

// values flattens the result array; bulbs answer with strings but some
// firmware sends bare numbers.
func (r commandResult) values() []string {
	out := make([]string, len(r.Result))
	for i, v := range r.Result {
		switch t := v.(type) {
		case string:
			out[i] = t
		default:
			out[i] = fmt.Sprint(t)
		}
	}
	return out
}
