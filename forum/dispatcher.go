package forum

import "encoding/json"

// Dispatcher routes incoming frames to registered callbacks. Frames are
// dispatched by their type discriminator; unrecognized types are logged and
// ignored, never fatal.
type Dispatcher struct {
	onMessage     func(MessageEvent)
	onUserStatus  func(UserStatusEvent)
	onUsersList   func(UsersListEvent)
	onAuthSuccess func()
	onAuthError   func(string)
	onError       func(error)

	logger Logger
}

func (d *Dispatcher) SetOnMessage(fn func(MessageEvent))       { d.onMessage = fn }
func (d *Dispatcher) SetOnUserStatus(fn func(UserStatusEvent)) { d.onUserStatus = fn }
func (d *Dispatcher) SetOnUsersList(fn func(UsersListEvent))   { d.onUsersList = fn }
func (d *Dispatcher) SetOnAuthSuccess(fn func())               { d.onAuthSuccess = fn }
func (d *Dispatcher) SetOnAuthError(fn func(message string))   { d.onAuthError = fn }
func (d *Dispatcher) SetOnError(fn func(error))                { d.onError = fn }

func (d *Dispatcher) log() Logger {
	if d.logger == nil {
		return noopLogger{}
	}
	return d.logger
}

// Dispatch decodes one raw frame and fires the matching callback.
func (d *Dispatcher) Dispatch(raw json.RawMessage) {
	var probe frameProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		d.fireError(WrapError(ErrorSerialization, "malformed frame", err))
		return
	}

	switch probe.Type {
	case frameMessage:
		fr, err := decodeFrame[MessageFrame](raw)
		if err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal message frame", err))
			return
		}
		if d.onMessage != nil {
			d.onMessage(MessageEvent{
				From:      fr.From,
				To:        fr.To,
				Content:   fr.Content,
				Timestamp: fr.Timestamp,
				ClientID:  fr.ClientID,
			})
		}
	case frameUserStatus:
		fr, err := decodeFrame[UserStatusFrame](raw)
		if err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal user_status frame", err))
			return
		}
		if d.onUserStatus != nil {
			d.onUserStatus(UserStatusEvent{UserID: fr.UserID, IsOnline: fr.IsOnline})
		}
	case frameUsersList:
		fr, err := decodeFrame[UsersListFrame](raw)
		if err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal users_list frame", err))
			return
		}
		if d.onUsersList != nil {
			d.onUsersList(UsersListEvent{Users: fr.Users})
		}
	case frameAuthSuccess:
		if d.onAuthSuccess != nil {
			d.onAuthSuccess()
		}
	case frameAuthError:
		fr, err := decodeFrame[ServerErrorFrame](raw)
		if err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal auth_error frame", err))
			return
		}
		if d.onAuthError != nil {
			d.onAuthError(fr.Message)
		}
	case frameError:
		fr, err := decodeFrame[ServerErrorFrame](raw)
		if err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal error frame", err))
			return
		}
		d.fireError(NewError(ErrorServer, fr.Message))
	case framePong:
		// keepalive answer, nothing to do
	default:
		d.log().Debug("ignoring unknown frame type", map[string]any{"type": probe.Type})
	}
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}
