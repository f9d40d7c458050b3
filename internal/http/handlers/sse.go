package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/labstack/echo/v4"
)

// sseEmitter writes chat events as server-sent-event frames, flushing after
// every frame so words reach the client as they are emitted
type sseEmitter struct {
	response *echo.Response
}

func newSSEEmitter(response *echo.Response) *sseEmitter {
	return &sseEmitter{response: response}
}

func (e *sseEmitter) Emit(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.response, "data: %s\n\n", data); err != nil {
		return err
	}
	e.response.Flush()
	return nil
}

func (e *sseEmitter) Done() error {
	if _, err := fmt.Fprint(e.response, "data: [DONE]\n\n"); err != nil {
		return err
	}
	e.response.Flush()
	return nil
}
