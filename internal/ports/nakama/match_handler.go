package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/giangittb112000/olympia-sub000/internal/app"
	"github.com/giangittb112000/olympia-sub000/internal/config"
	"github.com/giangittb112000/olympia-sub000/internal/domain"
)

var (
	errModeratorOnly = errors.New("operation requires the moderator role")
	errPlayerOnly    = errors.New("operation requires the player role")
	errUnknownOp     = errors.New("unknown operation code")
)

// MatchLabel is the JSON label published for match listing queries.
type MatchLabel struct {
	Game  string `json:"game"`
	Phase string `json:"phase"`
}

// MatchState holds the authoritative runtime state for the Nakama match
// handler. The app service owns all game logic; this layer only decodes
// messages, enforces session roles and fans results out.
type MatchState struct {
	Tick      int64                       `json:"tick"`
	Presences map[string]runtime.Presence `json:"-"` // userId -> presence
	Roles     map[string]string           `json:"-"` // userId -> session role
	Svc       *app.Service                `json:"-"`
}

// ModeratorID returns the connected moderator's user id, or "".
func (ms *MatchState) ModeratorID() string {
	for uid, role := range ms.Roles {
		if role == RoleModerator {
			return uid
		}
	}
	return ""
}

// PlayerIDs returns the user ids of the player-role sessions with a live
// presence. Roles outlive a disconnect but presence does not, and only
// present contestants take part in timeout bookkeeping.
func (ms *MatchState) PlayerIDs() []string {
	var ids []string
	for uid, role := range ms.Roles {
		if role != RolePlayer {
			continue
		}
		if _, connected := ms.Presences[uid]; connected {
			ids = append(ids, uid)
		}
	}
	return ids
}

func validRole(role string) bool {
	switch role {
	case RoleModerator, RolePlayer, RoleMonitor, RoleGuest:
		return true
	}
	return false
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created. A previously persisted
// match state is restored so a server restart resumes mid-round, with all
// timers frozen.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing quiz match handler.")

	cfgPath := "data/round_config.json"
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if val, ok := env["olympia_round_config"]; ok && val != "" {
			cfgPath = val
		}
	}
	if err := config.LoadRoundConfig(cfgPath); err != nil {
		logger.Warn("MatchInit: Could not load round config, using defaults: %v", err)
	}

	coord := app.NewCoordinator(NewNakamaMatchStore(nk))
	restored, err := coord.Restore(ctx)
	if err != nil {
		logger.Warn("MatchInit: Could not restore persisted match: %v", err)
	} else if restored {
		logger.Info("MatchInit: Restored persisted match in phase %s.", coord.Snapshot().Phase)
	}

	state := &MatchState{
		Presences: make(map[string]runtime.Presence),
		Roles:     make(map[string]string),
		Svc:       app.NewService(coord, NewNakamaPlayerDirectory(nk), NewNakamaQuestionBank(nk), config.GetRoundConfig()),
	}

	labelBytes, err := json.Marshal(MatchLabel{Game: "olympia", Phase: string(coord.Snapshot().Phase)})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1 // one tick per second drives the round countdowns
	return state, tickRate, string(labelBytes)
}

// MatchJoinAttempt validates the session role carried in the join metadata.
// A second moderator is rejected outright; a duplicate session for an
// already connected user replaces the old one, which is kicked on join.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	role := metadata["role"]
	if role == "" {
		role = RoleGuest
	}
	if !validRole(role) {
		return state, false, "unknown role"
	}

	if role == RoleModerator {
		if mod := matchState.ModeratorID(); mod != "" && mod != presence.GetUserId() {
			return state, false, "a moderator is already connected"
		}
	}

	matchState.Roles[presence.GetUserId()] = role
	return matchState, true, ""
}

// MatchJoin registers the new sessions. A rejoin by a connected user kicks
// the stale presence first so exactly one session per user remains.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		uid := p.GetUserId()
		if old, exists := matchState.Presences[uid]; exists && old.GetSessionId() != p.GetSessionId() {
			logger.Info("MatchJoin: Kicking stale session for user %s.", uid)
			if err := dispatcher.MatchKick([]runtime.Presence{old}); err != nil {
				logger.Warn("MatchJoin: Failed to kick stale session: %v", err)
			}
		}
		matchState.Presences[uid] = p

		// The role was recorded at join attempt. A user seen without one,
		// e.g. after a handler restart, is a guest until re-announced.
		if _, known := matchState.Roles[uid]; !known {
			matchState.Roles[uid] = RoleGuest
		}
		logger.Debug("MatchJoin: User %s joined as %s.", uid, matchState.Roles[uid])
	}

	mh.broadcastSnapshot(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave drops the presences. Roles are kept so a reconnecting user
// resumes the same role; the match stays alive with no sessions because the
// show floor may reconnect at any time.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		uid := p.GetUserId()
		if current, exists := matchState.Presences[uid]; exists && current.GetSessionId() == p.GetSessionId() {
			delete(matchState.Presences, uid)
			logger.Debug("MatchLeave: User %s left.", uid)
		}
	}
	return matchState
}

// MatchLoop processes all queued client messages first and then advances the
// countdown clock, so a submission raced against expiry in the same tick is
// honored. One snapshot broadcast and one persist cover everything the tick
// changed.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.Tick = tick

	dirty := false
	for _, msg := range messages {
		events, err := mh.handleMessage(ctx, matchState, msg)
		if err != nil {
			logger.Warn("MatchLoop: op %d from %s failed: %v", msg.GetOpCode(), msg.GetUserId(), err)
			mh.sendError(matchState, dispatcher, logger, msg.GetUserId(), err.Error())
		} else {
			dirty = true
		}
		// An operation can partially succeed: state committed and events
		// emitted, with a collaborator error reported on top. Those events
		// still go out.
		for _, ev := range events {
			dirty = true
			mh.broadcastEvent(matchState, dispatcher, logger, ev)
		}
	}

	tickEvents, tickChanged := matchState.Svc.Tick(ctx, matchState.PlayerIDs())
	for _, ev := range tickEvents {
		mh.broadcastEvent(matchState, dispatcher, logger, ev)
	}

	if dirty || tickChanged {
		mh.broadcastSnapshot(matchState, dispatcher, logger)
		mh.updateLabel(matchState, dispatcher, logger)
		if err := matchState.Svc.Coordinator().Persist(ctx); err != nil {
			logger.Error("MatchLoop: Failed to persist match state: %v", err)
		}
	}
	return matchState
}

type setPhaseRequest struct {
	Phase string `json:"phase"`
}

type warmUpPreviewRequest struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	PackID     string `json:"pack_id"`
	PackName   string `json:"pack_name"`
}

type warmUpSetupRequest struct {
	PlayerID string `json:"player_id"`
	PackID   string `json:"pack_id"`
}

type verdictRequest struct {
	Verdict string `json:"verdict"`
}

type rowRequest struct {
	Row int `json:"row"`
}

type pieceRequest struct {
	Piece int `json:"piece"`
}

type answerRequest struct {
	Text string `json:"text"`
}

type gradeRequest struct {
	PlayerID string `json:"player_id"`
	Correct  bool   `json:"correct"`
}

type judgeRequest struct {
	Correct bool `json:"correct"`
}

type playerRequest struct {
	PlayerID string `json:"player_id"`
}

type packRequest struct {
	PlayerID string `json:"player_id"`
	Value    int    `json:"value"`
}

// handleMessage decodes and dispatches one client message. Moderator-only
// operations verify the sender's role; contestant operations always act as
// the sender regardless of any id in the payload.
func (mh *matchHandler) handleMessage(ctx context.Context, state *MatchState, msg runtime.MatchData) ([]app.Event, error) {
	senderID := msg.GetUserId()
	role := state.Roles[senderID]
	svc := state.Svc

	moderatorOnly := func() error {
		if role != RoleModerator {
			return errModeratorOnly
		}
		return nil
	}
	playerOnly := func() error {
		if role != RolePlayer {
			return errPlayerOnly
		}
		return nil
	}
	decode := func(out interface{}) error {
		return json.Unmarshal(msg.GetData(), out)
	}

	switch msg.GetOpCode() {
	case OpSetPhase:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req setPhaseRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.SetPhase(ctx, domain.Phase(req.Phase))

	case OpWarmUpPreview:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req warmUpPreviewRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.WarmUpPreview(req.PlayerID, req.PlayerName, req.PackID, req.PackName)
	case OpWarmUpSetup:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req warmUpSetupRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.WarmUpSetup(ctx, req.PlayerID, req.PackID)
	case OpWarmUpStart:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.WarmUpStart()
	case OpWarmUpGrade:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req verdictRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.WarmUpGrade(ctx, req.Verdict)
	case OpWarmUpReset:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.WarmUpReset()

	case OpObstacleSelectRow:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req rowRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.ObstacleSelectRow(ctx, req.Row)
	case OpObstacleStartTimer:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.ObstacleStartRowTimer()
	case OpObstacleSubmitAnswer:
		if err := playerOnly(); err != nil {
			return nil, err
		}
		var req answerRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.ObstacleSubmitAnswer(senderID, req.Text)
	case OpObstacleToGrading:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.ObstacleToGrading()
	case OpObstacleGradeRow:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req gradeRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.ObstacleGradeRow(ctx, req.PlayerID, req.Correct)
	case OpObstacleFinishRow:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.ObstacleFinishRow(ctx)
	case OpObstacleDismissRow:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.ObstacleDismissRow()
	case OpObstacleCloseRow:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.ObstacleCloseRow()
	case OpObstacleRevealPiece:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req pieceRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.ObstacleRevealPiece(req.Piece)
	case OpObstacleRevealImage:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.ObstacleRevealImage()
	case OpObstacleBuzz:
		if err := playerOnly(); err != nil {
			return nil, err
		}
		return svc.ObstacleBuzzKeyword(ctx, senderID)
	case OpObstacleJudge:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req gradeRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.ObstacleJudgeKeyword(ctx, req.PlayerID, req.Correct)
	case OpObstacleReset:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.ObstacleReset(ctx)

	case OpAccelStartRound:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.AccelerationStartRound(ctx)
	case OpAccelStartTimer:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.AccelerationStartTimer()
	case OpAccelSubmitAnswer:
		if err := playerOnly(); err != nil {
			return nil, err
		}
		var req answerRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.AccelerationSubmitAnswer(ctx, senderID, req.Text)
	case OpAccelGrade:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req gradeRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.AccelerationGrade(ctx, req.PlayerID, req.Correct)
	case OpAccelNextQuestion:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.AccelerationNextQuestion(ctx)
	case OpAccelReset:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.AccelerationReset()

	case OpFinishStartRound:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.FinishStartRound()
	case OpFinishSelectTurnPlayer:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req playerRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.FinishSelectTurnPlayer(ctx, req.PlayerID)
	case OpFinishSelectPack:
		// The selecting player picks their own pack; the moderator may
		// also select on a player's behalf.
		var req packRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		if role == RolePlayer {
			req.PlayerID = senderID
		} else if role != RoleModerator {
			return nil, errPlayerOnly
		}
		return svc.FinishSelectPack(ctx, req.PlayerID, req.Value)
	case OpFinishConfirmStar:
		if err := playerOnly(); err != nil {
			return nil, err
		}
		return svc.FinishConfirmStar(senderID)
	case OpFinishSkipStar:
		if err := playerOnly(); err != nil {
			return nil, err
		}
		return svc.FinishSkipStar(senderID)
	case OpFinishVideoEnded:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.FinishVideoEnded()
	case OpFinishSubmitAnswer:
		if err := playerOnly(); err != nil {
			return nil, err
		}
		var req answerRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.FinishSubmitOwnerAnswer(senderID, req.Text)
	case OpFinishJudgeAnswer:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req judgeRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.FinishJudgeOwnerAnswer(ctx, req.Correct)
	case OpFinishEnableBuzzer:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.FinishEnableBuzzer()
	case OpFinishBuzz:
		if err := playerOnly(); err != nil {
			return nil, err
		}
		return svc.FinishBuzz(ctx, senderID)
	case OpFinishSelectStealer:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req playerRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.FinishSelectStealer(req.PlayerID)
	case OpFinishSubmitSteal:
		if err := playerOnly(); err != nil {
			return nil, err
		}
		var req answerRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.FinishSubmitStealAnswer(senderID, req.Text)
	case OpFinishJudgeSteal:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		var req judgeRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return svc.FinishJudgeSteal(ctx, req.Correct)
	case OpFinishNextQuestion:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.FinishNextQuestion()
	case OpFinishRoundEnd:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.FinishRoundEnd()
	case OpFinishReset:
		if err := moderatorOnly(); err != nil {
			return nil, err
		}
		return svc.FinishReset()
	}
	return nil, errUnknownOp
}

type errorPayload struct {
	Message string `json:"message"`
}

// broadcastSnapshot pushes the full authoritative state tree to every
// session. Spectator roles get the same view as everyone else; round answer
// texts are only present after the moderator reveals them.
func (mh *matchHandler) broadcastSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	bytes, err := json.Marshal(state.Svc.Coordinator().Snapshot())
	if err != nil {
		logger.Error("Failed to marshal snapshot: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpSnapshot, bytes, nil, nil, true); err != nil {
		logger.Error("Failed to broadcast snapshot: %v", err)
	}
}

// broadcastEvent dispatches one advisory app event to its recipients.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	var opCode int64
	switch ev.Kind {
	case app.EventBuzz:
		opCode = OpBuzz
	case app.EventPreview:
		opCode = OpPreview
	case app.EventScoreChanged:
		opCode = OpScoreChanged
	case app.EventRoundFinished:
		opCode = OpRoundFinished
	case app.EventTimerExpired:
		opCode = OpTimerExpired
	case app.EventStealAwarded:
		opCode = OpStealAwarded
	case app.EventAnswerReceived:
		opCode = OpAnswerReceived
	default:
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	bytes, err := json.Marshal(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}
		if len(recipients) == 0 {
			return
		}
	}
	if err := dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}
}

// sendError sends a rejection to the acting client only. Failed operations
// never mutate state, so no snapshot accompanies it.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID, message string) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: presence not found", userID)
		return
	}
	bytes, err := json.Marshal(errorPayload{Message: message})
	if err != nil {
		logger.Error("Failed to marshal error payload: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpError, bytes, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send error to %s: %v", userID, err)
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := json.Marshal(MatchLabel{
		Game:  "olympia",
		Phase: string(state.Svc.Coordinator().Snapshot().Phase),
	})
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

// MatchTerminate persists the current state one last time before shutdown.
func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	if err := matchState.Svc.Coordinator().Persist(ctx); err != nil {
		logger.Error("MatchTerminate: Final persist failed: %v", err)
	}
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return matchState
}

// MatchSignal lets server-side callers reassign a user's session role, e.g.
// promoting a guest to monitor after a token check. The signal payload is
// {"user_id": ..., "role": ...}.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}

	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return matchState, `{"error":"bad signal payload"}`
	}
	if req.UserID == "" || !validRole(req.Role) {
		return matchState, `{"error":"unknown role"}`
	}
	if req.Role == RoleModerator {
		if mod := matchState.ModeratorID(); mod != "" && mod != req.UserID {
			return matchState, `{"error":"a moderator is already connected"}`
		}
	}
	matchState.Roles[req.UserID] = req.Role
	return matchState, `{"ok":true}`
}
