package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/lobbyhub/internal/model"
)

func TestDecodeRequest(t *testing.T) {
	yes := true
	no := false

	tests := []struct {
		name    string
		raw     string
		want    model.Request
		wantErr error
	}{
		{"watch true", `{"event":"player:watch","data":true}`, model.WatchRequest{Watching: true}, nil},
		{"watch false", `{"event":"player:watch","data":false}`, model.WatchRequest{Watching: false}, nil},
		{"watch missing data", `{"event":"player:watch"}`, nil, ErrInvalidPayload},
		{"join", `{"event":"player:join","data":"alice"}`, model.JoinRequest{Username: "alice"}, nil},
		{"join wrong type", `{"event":"player:join","data":12}`, nil, ErrInvalidPayload},
		{"join null", `{"event":"player:join","data":null}`, nil, ErrInvalidPayload},
		{"edit", `{"event":"player:edit","data":"alicia"}`, model.EditRequest{Username: "alicia"}, nil},
		{"link", `{"event":"player:link","data":"secret"}`, model.LinkRequest{Credential: "secret"}, nil},
		{"quit", `{"event":"player:quit"}`, model.QuitRequest{}, nil},
		{"quit ignores data", `{"event":"player:quit","data":"x"}`, model.QuitRequest{}, nil},
		{"ready toggle", `{"event":"player:ready"}`, model.ReadyRequest{}, nil},
		{"ready null toggles", `{"event":"player:ready","data":null}`, model.ReadyRequest{}, nil},
		{"ready true", `{"event":"player:ready","data":true}`, model.ReadyRequest{Ready: &yes}, nil},
		{"ready false", `{"event":"player:ready","data":false}`, model.ReadyRequest{Ready: &no}, nil},
		{"ready wrong type", `{"event":"player:ready","data":"yes"}`, nil, ErrInvalidPayload},
		{"unknown event", `{"event":"player:dance"}`, nil, ErrUnknownEvent},
		{"outbound name inbound", `{"event":"player:count","data":1}`, nil, ErrUnknownEvent},
		{"not json", `player:join alice`, nil, ErrMalformedFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	tests := []struct {
		name  string
		event model.OutboundEvent
		want  string
	}{
		{"count", model.CountEvent(3), `{"event":"player:count","data":3}`},
		{"error", model.ErrorEvent("nope"), `{"event":"player:error","data":"nope"}`},
		{"null update", model.UpdateEvent(nil), `{"event":"player:update","data":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeEvent(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEncodeSecuredPlayerOmitsCredential(t *testing.T) {
	p := model.Player{ID: "p1", Username: "bob", Credential: "secret", Status: model.StatusIdling}

	secured, err := EncodeEvent(model.UpdateEvent(p.Secured()))
	require.NoError(t, err)
	assert.NotContains(t, string(secured), "secret")
	assert.NotContains(t, string(secured), "credential")

	own, err := EncodeEvent(model.UpdateEvent(p.Own()))
	require.NoError(t, err)
	assert.Contains(t, string(own), `"credential":"secret"`)
	assert.Contains(t, string(own), `"username":"bob"`)
}
