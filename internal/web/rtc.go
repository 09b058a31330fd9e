// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/driftwood-mud/driftwood/internal/core"
)

// rtcGatherTimeout bounds ICE candidate gathering. Vanilla ICE: all
// candidates are gathered before the answer SDP is returned, so the
// offer exchange is one HTTP round trip.
const rtcGatherTimeout = 15 * time.Second

type rtcOffer struct {
	SDP string `json:"sdp"`
}

type rtcAnswer struct {
	SDP string `json:"sdp"`
}

// handleRTCOffer answers a WebRTC offer and serves the caller's event
// stream over the client-created data channel. Inbound data channel
// messages are input lines, same as WebSocket text frames. The peer
// connection outlives the HTTP exchange and is torn down when the
// connection state degrades.
func (s *Server) handleRTCOffer(w http.ResponseWriter, r *http.Request) {
	player := playerOf(r)

	if err := negotiateVersion(r.URL.Query().Get("client_version")); err != nil {
		s.writeError(w, err)
		return
	}

	var offer rtcOffer
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil || offer.SDP == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "TransportError", Message: "body must carry an SDP offer"})
		return
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		s.writeError(w, err)
		return
	}

	lc, err := s.attachLive(r.Context(), player)
	if err != nil {
		_ = pc.Close()
		s.writeError(w, err)
		return
	}

	// The pump's lifetime is the peer connection's, not the request's.
	ctx, cancel := context.WithCancel(context.Background())
	var teardownOnce sync.Once
	teardown := func() {
		teardownOnce.Do(func() {
			cancel()
			s.release(lc)
			_ = pc.Close()
		})
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnOpen(func() {
			s.metrics.ConnectionsTotal.WithLabelValues("webrtc").Inc()
			s.metrics.AttachedClients.WithLabelValues("webrtc").Inc()
			s.logger.Info("webrtc attached", "player", lc.player.String())
			go func() {
				defer s.metrics.AttachedClients.WithLabelValues("webrtc").Dec()
				_ = s.pump(ctx, lc, func(event core.Event) error {
					data, err := json.Marshal(event)
					if err != nil {
						return err
					}
					return dc.SendText(string(data))
				})
			}()
		})
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if msg.IsString {
				s.engine.Sessions.Touch(lc.player)
				if err := s.engine.Submit(ctx, lc.player, string(msg.Data)); err != nil {
					s.logger.Debug("input dispatch failed",
						"player", lc.player.String(),
						"error", err,
					)
				}
			}
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			s.logger.Info("webrtc detached", "player", lc.player.String(), "state", state.String())
			// Close on a fresh goroutine; pion delivers this callback
			// on a loop that Close waits for.
			go teardown()
		default:
		}
	})

	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer.SDP}
	if err := pc.SetRemoteDescription(remote); err != nil {
		teardown()
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "TransportError", Message: "unusable SDP offer"})
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		teardown()
		s.writeError(w, err)
		return
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		teardown()
		s.writeError(w, err)
		return
	}

	select {
	case <-gatherComplete:
	case <-time.After(rtcGatherTimeout):
		teardown()
		s.writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: "TransportError", Message: "ICE gathering timed out"})
		return
	case <-r.Context().Done():
		teardown()
		return
	}

	s.writeJSON(w, http.StatusOK, rtcAnswer{SDP: pc.LocalDescription().SDP})
}
