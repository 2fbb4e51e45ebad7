package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"xdao.co/tokengate/challenge"
	"xdao.co/tokengate/edge"
)

// The auth routes mirror the identity pool's custom-auth triggers: the
// pool round-trips private challenge parameters between calls, so the
// handlers hold no session state.

func registerAuthRoutes(mux *http.ServeMux, logger *slog.Logger) {
	mux.HandleFunc("POST /auth/define", func(w http.ResponseWriter, r *http.Request) {
		var req challenge.Request
		if !decodeBody(w, r, &req) {
			return
		}
		decision := challenge.DecideNext(req.Session)
		writeJSON(w, logger, challenge.Response{
			IssueTokens:        decision.IssueTokens,
			FailAuthentication: decision.FailAuthentication,
			ChallengeName:      decision.NextChallengeName,
		})
	})

	mux.HandleFunc("POST /auth/create", func(w http.ResponseWriter, r *http.Request) {
		var req challenge.Request
		if !decodeBody(w, r, &req) {
			return
		}
		issued, err := challenge.Issue(req.Session, req.UserName)
		if err != nil {
			logger.Error("auth_issue_failed", "error", err.Error())
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		resp := challenge.Response{ChallengeName: challenge.Name}
		if issued != nil {
			resp.PublicChallengeParameters = &challenge.PublicParameters{Challenge: issued.Challenge}
			resp.PrivateChallengeParameters = &challenge.PrivateParameters{
				PublicKey: issued.PublicKey,
				Challenge: issued.Challenge,
			}
		}
		writeJSON(w, logger, resp)
	})

	mux.HandleFunc("POST /auth/verify", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PrivateChallengeParameters *challenge.PrivateParameters `json:"privateChallengeParameters"`
			ChallengeAnswer            string                       `json:"challengeAnswer"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		var pending *challenge.Issued
		if req.PrivateChallengeParameters != nil {
			pending = &challenge.Issued{
				Challenge: req.PrivateChallengeParameters.Challenge,
				PublicKey: req.PrivateChallengeParameters.PublicKey,
			}
		}
		correct := challenge.Verify(pending, challenge.Answer{Signature: req.ChallengeAnswer})
		writeJSON(w, logger, challenge.Response{AnswerCorrect: &correct})
	})
}

func registerEdgeRoute(mux *http.ServeMux, authorizer *edge.Authorizer, logger *slog.Logger) {
	mux.HandleFunc("POST /authorize", func(w http.ResponseWriter, r *http.Request) {
		var req edge.Request
		if !decodeBody(w, r, &req) {
			return
		}
		writeJSON(w, logger, authorizer.Authorize(r.Context(), &req))
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("write_response_failed", "error", err.Error())
	}
}
