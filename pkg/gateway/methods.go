package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/taylen/verso/pkg/connection"
)

// registerBuiltinMethods registers all built-in RPC methods
func (s *Server) registerBuiltinMethods() {
	_ = s.RegisterMethod("stream.open", s.handleStreamOpen)
	_ = s.RegisterMethod("stream.send", s.handleStreamSend)
	_ = s.RegisterMethod("stream.close", s.handleStreamClose)
	_ = s.RegisterMethod("stream.destroy", s.handleStreamDestroy)
	_ = s.RegisterMethod("stream.list", s.handleStreamList)
	_ = s.RegisterMethod("client.list", s.handleClientList)
	_ = s.RegisterMethod("server.status", s.handleServerStatus)
}

// rpcErrorFor maps session errors onto JSON-RPC error codes.
func rpcErrorFor(err error) *RPCError {
	code := InternalError
	switch {
	case errors.Is(err, connection.ErrSessionNotFound):
		code = SessionNotFound
	case errors.Is(err, connection.ErrSessionAlreadyExists),
		errors.Is(err, connection.ErrAnotherSessionBound):
		code = SessionConflict
	case errors.Is(err, connection.ErrCannotWrite):
		code = SessionUnwritable
	case errors.Is(err, connection.ErrInvalidAddress),
		errors.Is(err, connection.ErrCannotParse):
		code = InvalidParams
	}

	return &RPCError{
		Code:    code,
		Message: err.Error(),
	}
}

func stringParam(params map[string]interface{}, name string) (string, error) {
	value, ok := params[name].(string)
	if !ok || value == "" {
		return "", &RPCError{
			Code:    InvalidParams,
			Message: fmt.Sprintf("%s parameter is required and must be a string", name),
		}
	}
	return value, nil
}

// handleStreamOpen handles stream.open RPC method
func (s *Server) handleStreamOpen(params map[string]interface{}) (interface{}, error) {
	id, err := stringParam(params, "id")
	if err != nil {
		return nil, err
	}

	address, err := stringParam(params, "address")
	if err != nil {
		return nil, err
	}

	credential := ""
	if value, ok := params["credential"].(string); ok {
		credential = value
	}

	var opts []connection.OpenOption
	if timeoutMs, ok := params["timeoutMs"].(float64); ok && timeoutMs > 0 {
		opts = append(opts, connection.WithReadTimeout(time.Duration(timeoutMs)*time.Millisecond))
	}

	if err := s.manager.Open(id, address, credential, opts...); err != nil {
		return nil, rpcErrorFor(err)
	}

	return map[string]interface{}{
		"id": id,
	}, nil
}

// handleStreamSend handles stream.send RPC method
func (s *Server) handleStreamSend(params map[string]interface{}) (interface{}, error) {
	id, err := stringParam(params, "id")
	if err != nil {
		return nil, err
	}

	stanza, err := stringParam(params, "stanza")
	if err != nil {
		return nil, err
	}

	if err := s.manager.Send(id, stanza); err != nil {
		return nil, rpcErrorFor(err)
	}

	return map[string]interface{}{
		"sent": true,
	}, nil
}

// handleStreamClose handles stream.close RPC method
func (s *Server) handleStreamClose(params map[string]interface{}) (interface{}, error) {
	id, err := stringParam(params, "id")
	if err != nil {
		return nil, err
	}

	if err := s.manager.Close(id); err != nil {
		return nil, rpcErrorFor(err)
	}

	return map[string]interface{}{
		"closed": true,
	}, nil
}

// handleStreamDestroy handles stream.destroy RPC method
func (s *Server) handleStreamDestroy(params map[string]interface{}) (interface{}, error) {
	id, err := stringParam(params, "id")
	if err != nil {
		return nil, err
	}

	s.manager.Destroy(id)

	return map[string]interface{}{
		"destroyed": true,
	}, nil
}

// handleStreamList handles stream.list RPC method
func (s *Server) handleStreamList(params map[string]interface{}) (interface{}, error) {
	sessions := s.manager.List()

	infos := make([]map[string]interface{}, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, map[string]interface{}{
			"id":       session.ID,
			"identity": session.Identity,
			"openedAt": session.OpenedAt.UnixMilli(),
			"writable": session.Writable,
		})
	}

	return map[string]interface{}{
		"sessions": infos,
	}, nil
}

// handleClientList handles client.list RPC method
func (s *Server) handleClientList(params map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"clients": s.clients.GetConnectedClients(),
	}, nil
}

// handleServerStatus handles server.status RPC method
func (s *Server) handleServerStatus(params map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"status":   "ok",
		"sessions": s.manager.Count(),
		"clients":  s.clients.Count(),
		"uptimeMs": time.Since(s.startedAt).Milliseconds(),
	}, nil
}
