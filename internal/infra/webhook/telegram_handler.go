package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/logging"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/metrics"
)

// SecretTokenHeader is the header Telegram echoes the webhook secret in.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const sourceTelegram = "telegram"

// handleTelegram authenticates the secret-token header, parses the update and
// hands it to the worker pool. The response is always fast and, once the
// request is authentic and parseable, always 200: Telegram redelivers on any
// other status, and redelivery is handled by idempotent user state, not by
// failing the webhook.
func (s *Server) handleTelegram(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !s.tgAuth.Verify(r.Header.Get(SecretTokenHeader)) {
		metrics.IncWebhook(sourceTelegram, "unauthorized")
		logging.With(r.Context(), s.log).Warn().Str("remote", r.RemoteAddr).Msg("telegram webhook auth failed")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var upd tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		metrics.IncWebhook(sourceTelegram, "malformed")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Detach from the request context; the worker outlives the response.
	traceCtx := logging.CopyTrace(context.Background(), r.Context())
	s.submit(r.Context(), func(ctx context.Context) error {
		s.facade.HandleUpdate(logging.CopyTrace(ctx, traceCtx), &upd)
		return nil
	})

	metrics.IncWebhook(sourceTelegram, "ok")
	metrics.ObserveWebhookLatency(sourceTelegram, float64(time.Since(start).Milliseconds()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
