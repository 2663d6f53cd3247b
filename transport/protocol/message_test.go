package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/game/service"
)

func TestEncodeDecode_MoveRequest(t *testing.T) {
	move := engine.Move{From: engine.MustPosition(6, 0), To: engine.MustPosition(5, 0)}
	frame, err := Encode("player-1", MoveRequest{GameID: "abcd1234", Move: move})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	msg, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Kind != KindMoveRequest || msg.Sender() != "player-1" || msg.Timestamp.IsZero() {
		t.Errorf("unexpected envelope %+v", msg)
	}

	payload, err := msg.Unpack()
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	req, ok := payload.(*MoveRequest)
	if !ok {
		t.Fatalf("Expected *MoveRequest, got %T", payload)
	}
	if req.GameID != "abcd1234" || req.Move.From != move.From || req.Move.To != move.To {
		t.Errorf("unexpected payload %+v", req)
	}
}

func TestNew_NullSender(t *testing.T) {
	frame, err := Encode("", LoginRequest{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(frame), `"sender_id":null`) {
		t.Errorf("Expected a null sender_id, got %s", frame)
	}
	if _, err := Decode(frame); err != nil {
		t.Errorf("LOGIN_REQUEST without sender should decode, got %v", err)
	}
}

func TestDecode_Envelope(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `{"kind":`, ErrMalformed},
		{"unknown kind", `{"kind":"SHOUT","sender_id":"p","timestamp":"2024-05-01T10:00:00Z","payload":{}}`, ErrUnknownKind},
		{"missing timestamp", `{"kind":"HEARTBEAT","sender_id":"p","payload":{}}`, ErrMalformed},
		{"missing sender", `{"kind":"HEARTBEAT","sender_id":null,"timestamp":"2024-05-01T10:00:00Z","payload":{}}`, ErrMissingSender},
		{"empty sender", `{"kind":"MOVE_REQUEST","sender_id":"","timestamp":"2024-05-01T10:00:00Z","payload":{}}`, ErrMissingSender},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode([]byte(test.frame))
			if !errors.Is(err, test.want) {
				t.Errorf("Expected %v, got %v", test.want, err)
			}
		})
	}
}

func TestUnpack_Payloads(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		payload string
		wantErr bool
	}{
		{"heartbeat without payload", KindHeartbeat, ``, false},
		{"heartbeat null payload", KindHeartbeat, `null`, false},
		{"invitation", KindGameInvitation, `{"targetPlayerId":"p2"}`, false},
		{"invitation without target", KindGameInvitation, `{}`, true},
		{"response without id", KindInvitationResponse, `{"accepted":true}`, true},
		{"move without game", KindMoveRequest, `{"move":{}}`, true},
		{"resign", KindResignRequest, `{"gameId":"g1"}`, false},
		{"chat broadcast", KindChatMessage, `{"content":"hi","targetId":null}`, false},
		{"chat empty", KindChatMessage, `{"content":"  "}`, true},
		{"unknown field", KindLogoutRequest, `{"force":true}`, true},
		{"wrong type", KindInvitationResponse, `{"invitationId":"i","accepted":"yes"}`, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			msg := &Message{Kind: test.kind, Payload: json.RawMessage(test.payload)}
			p, err := msg.Unpack()
			if test.wantErr {
				if !errors.Is(err, ErrInvalidPayload) {
					t.Errorf("Expected ErrInvalidPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unpack: %v", err)
			}
			if p.Kind() != test.kind {
				t.Errorf("Expected %s payload, got %s", test.kind, p.Kind())
			}
		})
	}
}

func TestChatMessage_Target(t *testing.T) {
	bob := "bob"
	if (ChatMessage{Content: "x"}).Target() != "" {
		t.Error("Expected broadcast target to be empty")
	}
	if (ChatMessage{Content: "x", TargetID: &bob}).Target() != "bob" {
		t.Error("Expected direct target")
	}
}

func TestEveryKindHasPayload(t *testing.T) {
	kinds := []Kind{
		KindLoginRequest, KindLoginResponse, KindLogoutRequest, KindLobbyUpdate,
		KindPlayerListRequest, KindPlayerListResponse, KindGameListRequest,
		KindGameListResponse, KindGameInvitation, KindInvitationResponse,
		KindMoveRequest, KindMoveResponse, KindGameStateUpdate, KindGameStart,
		KindGameEnd, KindChatMessage, KindErrorMessage, KindHeartbeat,
		KindDisconnect, KindResignRequest,
	}
	for _, k := range kinds {
		p := payloadFor(k)
		if p == nil || p.Kind() != k {
			t.Errorf("kind %s has no matching payload", k)
		}
	}
}

func TestGameStateUpdate_RoundTrip(t *testing.T) {
	eng, err := engine.NewEngine("alice", "bob")
	if err != nil {
		t.Fatal(err)
	}
	frame, err := Encode("", GameStateUpdate{GameID: "g1", State: eng.State()})
	if err != nil {
		t.Fatal(err)
	}
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil {
		t.Fatal(err)
	}
	p, err := m.Unpack()
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	state := p.(*GameStateUpdate).State
	if state.Board != eng.State().Board || state.CurrentPlayer() != "alice" {
		t.Errorf("state did not survive the wire: %+v", state)
	}
}

func TestErrorMessage_Code(t *testing.T) {
	frame, _ := Encode("", ErrorMessage{Code: service.CodeNotLoggedIn, Description: "log in first"})
	if !strings.Contains(string(frame), `"code":"NOT_LOGGED_IN"`) {
		t.Errorf("unexpected frame %s", frame)
	}
}
