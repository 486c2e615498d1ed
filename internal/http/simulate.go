package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"combatsim/broker/internal/catalog"
	"combatsim/broker/internal/combat"
	"combatsim/broker/internal/logging"
	"combatsim/broker/internal/simulation"
)

// SimulateRequest is the body of POST /simulate and the first frame of /ws/simulate.
type SimulateRequest = simulation.Request

// DecodeSimulateRequest parses a request strictly so misspelled fields surface as errors.
func DecodeSimulateRequest(body io.Reader) (SimulateRequest, error) {
	return simulation.DecodeRequest(body)
}

// SimulateHandler runs a simulation synchronously and returns the aggregated result.
func (h *HandlerSet) SimulateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.LoggerFromContext(r.Context()).With(
			logging.String("handler", "simulate"),
			logging.String("remote_addr", r.RemoteAddr),
		)
		if h.rateLimiter != nil && !h.rateLimiter.Allow(clientKey(r)) {
			reqLogger.Warn("simulation denied: rate limit exceeded")
			writeError(w, http.StatusTooManyRequests, "too many requests", "")
			return
		}
		body := io.Reader(r.Body)
		if h.maxPayloadBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, h.maxPayloadBytes)
		}
		req, err := DecodeSimulateRequest(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), "body")
				return
			}
			writeRunError(w, err)
			return
		}

		result, err := h.runner.Simulate(r.Context(), h.catalog, req.Config, req.Options())
		if err != nil {
			if combat.IsConfigError(err) {
				reqLogger.Info("simulation rejected", logging.Error(err))
			}
			writeRunError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// BotSummary is the catalog listing entry of a bot.
type BotSummary struct {
	Name          string           `json:"name"`
	Size          catalog.Size     `json:"size"`
	Movement      catalog.Movement `json:"movement"`
	CoreIntegrity int              `json:"coreIntegrity"`
	Parts         int              `json:"parts"`
}

// WeaponSummary is the catalog listing entry of a weapon.
type WeaponSummary struct {
	Name         string             `json:"name"`
	Type         catalog.ItemType   `json:"type"`
	Damage       string             `json:"damage,omitempty"`
	DamageType   catalog.DamageType `json:"damageType,omitempty"`
	Explosion    string             `json:"explosion,omitempty"`
	Melee        bool               `json:"melee"`
	Overloadable bool               `json:"overloadable,omitempty"`
}

// BotsHandler lists every bot in the catalog.
func (h *HandlerSet) BotsHandler() http.HandlerFunc {
	type response struct {
		Bots []BotSummary `json:"bots"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		bots := h.catalog.Bots()
		resp := response{Bots: make([]BotSummary, 0, len(bots))}
		for _, bot := range bots {
			parts := 0
			for _, equipped := range bot.Parts {
				parts += equipped.Number
			}
			resp.Bots = append(resp.Bots, BotSummary{
				Name:          bot.Name,
				Size:          bot.Size,
				Movement:      bot.Movement,
				CoreIntegrity: bot.CoreIntegrity,
				Parts:         parts,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// BotHandler returns the full definition of one bot.
func (h *HandlerSet) BotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bot, err := h.catalog.Bot(r.PathValue("name"))
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error(), "name")
				return
			}
			writeError(w, http.StatusInternalServerError, "unexpected error", "")
			return
		}
		writeJSON(w, http.StatusOK, bot)
	}
}

// WeaponsHandler lists every weapon in the catalog.
func (h *HandlerSet) WeaponsHandler() http.HandlerFunc {
	type response struct {
		Weapons []WeaponSummary `json:"weapons"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		weapons := h.catalog.Weapons()
		resp := response{Weapons: make([]WeaponSummary, 0, len(weapons))}
		for _, part := range weapons {
			summary := WeaponSummary{Name: part.Name, Type: part.Type, Melee: part.Type.IsMelee()}
			if part.Weapon != nil {
				summary.Damage = part.Weapon.Damage
				summary.DamageType = part.Weapon.DamageType
				summary.Explosion = part.Weapon.Explosion
				summary.Overloadable = part.Weapon.Overloadable
			}
			resp.Weapons = append(resp.Weapons, summary)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
