package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/giangittb112000/olympia-sub000/internal/app"
)

// RpcCurrentMatchFn returns the id of the single authoritative quiz match,
// creating it if none is running.
//
// Payload: unused.
// Returns: JSON {"match_id": ...}.
func RpcCurrentMatchFn(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userId, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	limit := 1
	authoritative := true
	labelQuery := "+label.game:olympia"
	minSize := 0
	maxSize := 100

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, labelQuery)
	if err != nil {
		logger.Error("RpcCurrentMatch [User:%s]: Failed to list matches: %v", userId, err)
		return "", err
	}

	matchId := ""
	if len(matches) > 0 {
		matchId = matches[0].MatchId
		logger.Info("RpcCurrentMatch [User:%s]: Found existing match %s", userId, matchId)
	} else {
		matchId, err = nk.MatchCreate(ctx, MatchNameOlympia, nil)
		if err != nil {
			logger.Error("RpcCurrentMatch [User:%s]: Failed to create match: %v", userId, err)
			return "", err
		}
		logger.Info("RpcCurrentMatch [User:%s]: Created new match %s", userId, matchId)
	}

	response, err := json.Marshal(map[string]string{"match_id": matchId})
	if err != nil {
		return "", err
	}
	return string(response), nil
}

type spectatorTokenRequest struct {
	Role    string `json:"role"`
	MatchID string `json:"match_id"`
}

type spectatorTokenResponse struct {
	Token string `json:"token"`
}

// newSpectatorTokenRPC builds the spectator_token RPC. Tokens grant monitor
// or guest read access only; the signing secret comes from the runtime env.
func newSpectatorTokenRPC() func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userId, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if userId == "" {
			return "", fmt.Errorf("authentication required")
		}

		secret := ""
		issuer := "olympia"
		if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
			secret = env["olympia_token_secret"]
			if val := env["olympia_token_issuer"]; val != "" {
				issuer = val
			}
		}

		var req spectatorTokenRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", fmt.Errorf("bad payload: %w", err)
		}

		svc := app.NewTokenService(secret, issuer, time.Hour)
		token, err := svc.GenerateToken(userId, req.Role, req.MatchID)
		if err != nil {
			logger.Warn("RpcSpectatorToken [User:%s]: %v", userId, err)
			return "", err
		}

		response, err := json.Marshal(spectatorTokenResponse{Token: token})
		if err != nil {
			return "", err
		}
		return string(response), nil
	}
}

// RegisterRPCs wires every RPC exposed by the module.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcCurrentMatch, RpcCurrentMatchFn); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcSpectatorToken, newSpectatorTokenRPC()); err != nil {
		return err
	}
	return nil
}
