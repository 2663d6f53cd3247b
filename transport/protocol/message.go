package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownKind    = errors.New("unknown message kind")
	ErrMissingSender  = errors.New("sender_id is required")
	ErrMalformed      = errors.New("malformed message")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Kind discriminates messages on the wire
type Kind string

const (
	KindLoginRequest       Kind = "LOGIN_REQUEST"
	KindLoginResponse      Kind = "LOGIN_RESPONSE"
	KindLogoutRequest      Kind = "LOGOUT_REQUEST"
	KindLobbyUpdate        Kind = "LOBBY_UPDATE"
	KindPlayerListRequest  Kind = "PLAYER_LIST_REQUEST"
	KindPlayerListResponse Kind = "PLAYER_LIST_RESPONSE"
	KindGameListRequest    Kind = "GAME_LIST_REQUEST"
	KindGameListResponse   Kind = "GAME_LIST_RESPONSE"
	KindGameInvitation     Kind = "GAME_INVITATION"
	KindInvitationResponse Kind = "INVITATION_RESPONSE"
	KindMoveRequest        Kind = "MOVE_REQUEST"
	KindMoveResponse       Kind = "MOVE_RESPONSE"
	KindGameStateUpdate    Kind = "GAME_STATE_UPDATE"
	KindGameStart          Kind = "GAME_START"
	KindGameEnd            Kind = "GAME_END"
	KindChatMessage        Kind = "CHAT_MESSAGE"
	KindErrorMessage       Kind = "ERROR_MESSAGE"
	KindHeartbeat          Kind = "HEARTBEAT"
	KindDisconnect         Kind = "DISCONNECT"
	KindResignRequest      Kind = "RESIGN_REQUEST"
)

// payloadFor returns a fresh payload value for kind, or nil if the kind is
// not part of the protocol.
func payloadFor(kind Kind) Payload {
	switch kind {
	case KindLoginRequest:
		return &LoginRequest{}
	case KindLoginResponse:
		return &LoginResponse{}
	case KindLogoutRequest:
		return &LogoutRequest{}
	case KindLobbyUpdate:
		return &LobbyUpdate{}
	case KindPlayerListRequest:
		return &PlayerListRequest{}
	case KindPlayerListResponse:
		return &PlayerListResponse{}
	case KindGameListRequest:
		return &GameListRequest{}
	case KindGameListResponse:
		return &GameListResponse{}
	case KindGameInvitation:
		return &GameInvitation{}
	case KindInvitationResponse:
		return &InvitationResponse{}
	case KindMoveRequest:
		return &MoveRequest{}
	case KindMoveResponse:
		return &MoveResponse{}
	case KindGameStateUpdate:
		return &GameStateUpdate{}
	case KindGameStart:
		return &GameStart{}
	case KindGameEnd:
		return &GameEnd{}
	case KindChatMessage:
		return &ChatMessage{}
	case KindErrorMessage:
		return &ErrorMessage{}
	case KindHeartbeat:
		return &Heartbeat{}
	case KindDisconnect:
		return &Disconnect{}
	case KindResignRequest:
		return &ResignRequest{}
	}
	return nil
}

// Valid reports whether k is part of the protocol
func (k Kind) Valid() bool {
	return payloadFor(k) != nil
}

// Message is the envelope every frame carries
type Message struct {
	Kind      Kind            `json:"kind"`
	SenderID  *string         `json:"sender_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// New wraps payload in an envelope stamped now. An empty senderID is sent
// as null.
func New(senderID string, payload Payload) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", payload.Kind(), err)
	}
	m := &Message{
		Kind:      payload.Kind(),
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}
	if senderID != "" {
		m.SenderID = &senderID
	}
	return m, nil
}

// Encode marshals payload into one wire frame
func Encode(senderID string, payload Payload) ([]byte, error) {
	m, err := New(senderID, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Sender returns the sender id, or "" when absent
func (m *Message) Sender() string {
	if m.SenderID == nil {
		return ""
	}
	return *m.SenderID
}

// Decode parses a frame and checks its envelope. The payload is decoded
// separately with Unpack.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Parse decodes a frame checking only its kind. Peers use it for server
// messages, which carry a null sender_id.
func Parse(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !m.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	return &m, nil
}

// Validate checks the envelope: a known kind, a timestamp, and a sender on
// every kind except LOGIN_REQUEST.
func (m *Message) Validate() error {
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrMalformed)
	}
	if m.Kind != KindLoginRequest && m.Sender() == "" {
		return fmt.Errorf("%w: %s", ErrMissingSender, m.Kind)
	}
	return nil
}

// Unpack decodes the payload into the type registered for the message's
// kind and validates it.
func (m *Message) Unpack() (Payload, error) {
	p := payloadFor(m.Kind)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	raw := bytes.TrimSpace(m.Payload)
	if len(raw) != 0 && !bytes.Equal(raw, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, m.Kind, err)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, m.Kind, err)
	}
	return p, nil
}
