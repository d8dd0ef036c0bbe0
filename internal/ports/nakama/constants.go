package nakama

const (
	// RpcCurrentMatch is the Nakama RPC id clients call to find or create
	// the single authoritative quiz match.
	RpcCurrentMatch = "current_match"

	// RpcSpectatorToken issues signed read-only access tokens for overlay
	// and guest clients.
	RpcSpectatorToken = "spectator_token"

	// MatchNameOlympia is the authoritative match handler name registered
	// with Nakama.
	MatchNameOlympia = "olympia_match"
)

// Session roles carried in the join metadata "role" key.
const (
	RoleModerator = "moderator"
	RolePlayer    = "player"
	RoleMonitor   = "monitor"
	RoleGuest     = "guest"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpSetPhase int64 = 1

	OpWarmUpPreview int64 = 10
	OpWarmUpSetup   int64 = 11
	OpWarmUpStart   int64 = 12
	OpWarmUpGrade   int64 = 13
	OpWarmUpReset   int64 = 14

	OpObstacleSelectRow    int64 = 20
	OpObstacleStartTimer   int64 = 21
	OpObstacleSubmitAnswer int64 = 22
	OpObstacleToGrading    int64 = 23
	OpObstacleGradeRow     int64 = 24
	OpObstacleFinishRow    int64 = 25
	OpObstacleDismissRow   int64 = 26
	OpObstacleCloseRow     int64 = 27
	OpObstacleRevealPiece  int64 = 28
	OpObstacleRevealImage  int64 = 29
	OpObstacleBuzz         int64 = 30
	OpObstacleJudge        int64 = 31
	OpObstacleReset        int64 = 32

	OpAccelStartRound   int64 = 40
	OpAccelStartTimer   int64 = 41
	OpAccelSubmitAnswer int64 = 42
	OpAccelGrade        int64 = 43
	OpAccelNextQuestion int64 = 44
	OpAccelReset        int64 = 45

	OpFinishStartRound       int64 = 50
	OpFinishSelectTurnPlayer int64 = 51
	OpFinishSelectPack       int64 = 52
	OpFinishConfirmStar      int64 = 53
	OpFinishSkipStar         int64 = 54
	OpFinishVideoEnded       int64 = 55
	OpFinishSubmitAnswer     int64 = 56
	OpFinishJudgeAnswer      int64 = 57
	OpFinishEnableBuzzer     int64 = 58
	OpFinishBuzz             int64 = 59
	OpFinishSelectStealer    int64 = 60
	OpFinishSubmitSteal      int64 = 61
	OpFinishJudgeSteal       int64 = 62
	OpFinishNextQuestion     int64 = 63
	OpFinishRoundEnd         int64 = 64
	OpFinishReset            int64 = 65

	// Server -> Client events
	OpSnapshot       int64 = 100
	OpError          int64 = 101
	OpBuzz           int64 = 102
	OpPreview        int64 = 103
	OpScoreChanged   int64 = 104
	OpRoundFinished  int64 = 105
	OpTimerExpired   int64 = 106
	OpStealAwarded   int64 = 107
	OpAnswerReceived int64 = 108
)
