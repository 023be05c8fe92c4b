package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/internal/providers/tts"
	"github.com/sandevgo/parley/pkg/conv"
	"github.com/sandevgo/parley/pkg/log"
)

type speakRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice,omitempty"`
	Language string `json:"language,omitempty"`
}

type generateRequest struct {
	Message string `json:"message"`
}

type generateResponse struct {
	Reply string `json:"reply"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req speakRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	audio, err := s.speech.Synthesize(ctx, core.SpeechRequest{
		Text:     req.Text,
		Voice:    req.Voice,
		Language: req.Language,
	})
	if err != nil {
		if errors.Is(err, tts.ErrEmptyText) {
			s.counters.speak(ctx, "invalid")
			writeError(w, http.StatusBadRequest, "text has nothing to speak")
			return
		}
		s.counters.speak(ctx, "error")
		log.FromCtx(ctx).Error().Err(err).Msg("speech synthesis failed")
		writeError(w, http.StatusInternalServerError, "speech synthesis failed")
		return
	}
	s.counters.speak(ctx, "ok")

	w.Header().Set("Content-Type", audioContentType(audio))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	history := []core.Turn{{Role: core.RoleUser, Content: message}}
	reply := s.generator.Generate(ctx, history, s.directive)
	if reply == s.generator.Fallback() {
		s.counters.generate(ctx, "error")
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}
	s.counters.generate(ctx, "ok")

	writeJSON(w, http.StatusOK, generateResponse{Reply: conv.PlainText(reply)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Sessions: s.relay.Sessions()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// audioContentType trusts the RIFF and ID3 signatures and assumes MPEG for
// bare frames.
func audioContentType(audio []byte) string {
	ct := http.DetectContentType(audio)
	if strings.HasPrefix(ct, "audio/") {
		return ct
	}
	return "audio/mpeg"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
