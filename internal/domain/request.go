package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownRequest = errors.New("unknown request type")

type RequestType string

const (
	RequestPlayback      RequestType = "playback"
	RequestSeek          RequestType = "seek"
	RequestSkip          RequestType = "skip"
	RequestPlayNow       RequestType = "play-now"
	RequestVote          RequestType = "vote"
	RequestShuffle       RequestType = "shuffle"
	RequestAdd           RequestType = "add"
	RequestRemove        RequestType = "remove"
	RequestOrder         RequestType = "order"
	RequestJoin          RequestType = "join"
	RequestLeave         RequestType = "leave"
	RequestApplySettings RequestType = "apply-settings"
)

// RoomRequest is one of the request structs below. The unexported method keeps
// the set closed to this package.
type RoomRequest interface {
	Type() RequestType
	roomRequest()
}

type PlaybackRequest struct {
	State bool `json:"state"`
}

// SeekRequest with a nil Value is ignored.
type SeekRequest struct {
	Value *float64 `json:"value"`
}

type SkipRequest struct{}

type PlayNowRequest struct {
	Video Video `json:"video"`
}

type VoteRequest struct {
	Video Video `json:"video"`
	Add   bool  `json:"add"`
}

type ShuffleRequest struct{}

// AddRequest queues a single video or a batch.
type AddRequest struct {
	Video  *Video  `json:"video,omitempty"`
	Videos []Video `json:"videos,omitempty"`
}

type RemoveRequest struct {
	Video Video `json:"video"`
}

type OrderRequest struct {
	FromIdx int `json:"fromIdx"`
	ToIdx   int `json:"toIdx"`
}

type JoinRequest struct {
	Username string `json:"username"`
}

type LeaveRequest struct{}

type ApplySettingsRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	QueueMode   *QueueMode `json:"queueMode,omitempty"`
}

func (PlaybackRequest) Type() RequestType      { return RequestPlayback }
func (SeekRequest) Type() RequestType          { return RequestSeek }
func (SkipRequest) Type() RequestType          { return RequestSkip }
func (PlayNowRequest) Type() RequestType       { return RequestPlayNow }
func (VoteRequest) Type() RequestType          { return RequestVote }
func (ShuffleRequest) Type() RequestType       { return RequestShuffle }
func (AddRequest) Type() RequestType           { return RequestAdd }
func (RemoveRequest) Type() RequestType        { return RequestRemove }
func (OrderRequest) Type() RequestType         { return RequestOrder }
func (JoinRequest) Type() RequestType          { return RequestJoin }
func (LeaveRequest) Type() RequestType         { return RequestLeave }
func (ApplySettingsRequest) Type() RequestType { return RequestApplySettings }

func (PlaybackRequest) roomRequest()      {}
func (SeekRequest) roomRequest()          {}
func (SkipRequest) roomRequest()          {}
func (PlayNowRequest) roomRequest()       {}
func (VoteRequest) roomRequest()          {}
func (ShuffleRequest) roomRequest()       {}
func (AddRequest) roomRequest()           {}
func (RemoveRequest) roomRequest()        {}
func (OrderRequest) roomRequest()         {}
func (JoinRequest) roomRequest()          {}
func (LeaveRequest) roomRequest()         {}
func (ApplySettingsRequest) roomRequest() {}

// RequiredPermission returns the permission a request needs. The second result
// is false for requests every connected client may send.
func RequiredPermission(t RequestType) (Permission, bool) {
	switch t {
	case RequestPlayback:
		return PermissionPlayPause, true
	case RequestSeek:
		return PermissionSeek, true
	case RequestSkip:
		return PermissionSkip, true
	case RequestPlayNow:
		return PermissionPlayNow, true
	case RequestVote:
		return PermissionVote, true
	case RequestShuffle, RequestOrder:
		return PermissionReorderQueue, true
	case RequestAdd:
		return PermissionAddToQueue, true
	case RequestRemove:
		return PermissionRemoveFromQueue, true
	case RequestApplySettings:
		return PermissionConfigureRoom, true
	default:
		return 0, false
	}
}

func newRequest(t RequestType) (RoomRequest, error) {
	switch t {
	case RequestPlayback:
		return &PlaybackRequest{}, nil
	case RequestSeek:
		return &SeekRequest{}, nil
	case RequestSkip:
		return &SkipRequest{}, nil
	case RequestPlayNow:
		return &PlayNowRequest{}, nil
	case RequestVote:
		return &VoteRequest{}, nil
	case RequestShuffle:
		return &ShuffleRequest{}, nil
	case RequestAdd:
		return &AddRequest{}, nil
	case RequestRemove:
		return &RemoveRequest{}, nil
	case RequestOrder:
		return &OrderRequest{}, nil
	case RequestJoin:
		return &JoinRequest{}, nil
	case RequestLeave:
		return &LeaveRequest{}, nil
	case RequestApplySettings:
		return &ApplySettingsRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequest, t)
	}
}

// deref turns the pointer produced by newRequest back into a value.
func deref(r RoomRequest) RoomRequest {
	switch v := r.(type) {
	case *PlaybackRequest:
		return *v
	case *SeekRequest:
		return *v
	case *SkipRequest:
		return *v
	case *PlayNowRequest:
		return *v
	case *VoteRequest:
		return *v
	case *ShuffleRequest:
		return *v
	case *AddRequest:
		return *v
	case *RemoveRequest:
		return *v
	case *OrderRequest:
		return *v
	case *JoinRequest:
		return *v
	case *LeaveRequest:
		return *v
	case *ApplySettingsRequest:
		return *v
	default:
		return r
	}
}

// DecodeRequest parses a request object of the form {"type": "...", ...}.
func DecodeRequest(data []byte) (RoomRequest, error) {
	var envelope struct {
		Type RequestType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode request type: %w", err)
	}

	req, err := newRequest(envelope.Type)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("failed to decode %s request: %w", envelope.Type, err)
	}

	return deref(req), nil
}

// EncodeRequest is the inverse of DecodeRequest.
func EncodeRequest(req RoomRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}

	typ, err := json.Marshal(req.Type())
	if err != nil {
		return nil, err
	}
	fields["type"] = typ

	return json.Marshal(fields)
}

// Envelope is the wire form of a request relayed between nodes.
type Envelope struct {
	Request RoomRequest
	Token   string
}

type envelopeJSON struct {
	Request json.RawMessage `json:"request"`
	Token   string          `json:"token"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	req, err := EncodeRequest(e.Request)
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelopeJSON{Request: req, Token: e.Token})
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw envelopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	req, err := DecodeRequest(raw.Request)
	if err != nil {
		return err
	}

	e.Request = req
	e.Token = raw.Token
	return nil
}
