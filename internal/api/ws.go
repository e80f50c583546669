package api

import (
	"context"
	"encoding/json"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/room"
	"github.com/victornm/livequiz/internal/session"
)

const commandCreateSession = "create-session"

// router turns websocket messages into engine calls. Errors go back to the sender only.
type router struct {
	engine *session.Engine
	hub    *room.Hub
}

func (r *router) HandleMessage(ctx context.Context, c *room.Conn, m room.Message) {
	if err := r.dispatch(ctx, c, m); err != nil {
		e := errors.Convert(err)
		r.hub.Unicast(ctx, c.ID(), domain.RoomEventError, domain.ErrorPayload{
			Command: m.Event,
			Code:    e.GRPCStatus().Code().String(),
			Message: e.Message,
		})
	}
}

func (r *router) HandleClose(ctx context.Context, c *room.Conn) {
	// The session may be gone already.
	_ = r.engine.Disconnect(ctx, session.DisconnectRequest{SessionID: c.SessionID(), ConnectionID: c.ID()})
}

func (r *router) dispatch(ctx context.Context, c *room.Conn, m room.Message) error {
	sid := c.SessionID()

	switch m.Event {
	case commandCreateSession:
		req := session.CreateSessionRequest{}
		if err := decode(m, &req); err != nil {
			return err
		}
		req.SessionID = sid

		ss, err := r.engine.CreateSession(ctx, req)
		if err != nil {
			return err
		}
		r.hub.Unicast(ctx, c.ID(), domain.RoomEventSessionCreated, ss)
		return nil

	case domain.CommandJoin:
		req := session.JoinRequest{}
		if err := decode(m, &req); err != nil {
			return err
		}
		req.SessionID, req.ConnectionID = sid, c.ID()
		return r.engine.Join(ctx, req)

	case domain.CommandSelectDoubleCategory:
		req := session.SelectDoubleCategoryRequest{}
		if err := decode(m, &req); err != nil {
			return err
		}
		req.SessionID, req.ConnectionID = sid, c.ID()
		return r.engine.SelectDoubleCategory(ctx, req)

	case domain.CommandStartQuiz:
		return r.engine.StartQuiz(ctx, session.HostRequest{SessionID: sid})

	case domain.CommandNextQuestion:
		return r.engine.NextQuestion(ctx, session.HostRequest{SessionID: sid})

	case domain.CommandStartTimer:
		req := session.StartTimerRequest{}
		if err := decode(m, &req); err != nil {
			return err
		}
		req.SessionID = sid
		return r.engine.StartTimer(ctx, req)

	case domain.CommandAnswerSelected, domain.CommandSubmitAnswer:
		req := session.AnswerRequest{}
		if err := decode(m, &req); err != nil {
			return err
		}
		req.SessionID, req.ConnectionID = sid, c.ID()
		if m.Event == domain.CommandAnswerSelected {
			return r.engine.AnswerSelected(ctx, req)
		}
		return r.engine.SubmitAnswer(ctx, req)

	case domain.CommandNextReviewStep:
		return r.engine.NextReviewStep(ctx, session.HostRequest{SessionID: sid})

	case domain.CommandEndReview:
		return r.engine.EndReview(ctx, session.HostRequest{SessionID: sid})

	case "":
		return errors.InvalidArgument("malformed message")

	default:
		return errors.InvalidArgument("unknown command: %s", m.Event)
	}
}

func decode(m room.Message, v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.InvalidArgument("invalid %s payload: %v", m.Event, err)
	}
	return nil
}
