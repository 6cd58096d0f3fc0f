package models

// Table is an evidence panel rendered as rows of display strings.
type Table struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Character is a row of the character stats panel.
type Character struct {
	Name             string  `db:"name"`
	Role             string  `db:"role"`
	WinRate          float64 `db:"win_rate"`
	PickRate         float64 `db:"pick_rate"`
	DamageMultiplier float64 `db:"damage_multiplier"`
}

// HourlyWinRate is a row of the hourly win rate panel.
type HourlyWinRate struct {
	Character string  `db:"character"`
	Hour      string  `db:"hour"`
	WinRate   float64 `db:"win_rate"`
	Matches   int     `db:"matches"`
}

type PatchNote struct {
	Version    string `db:"version"`
	ReleasedAt string `db:"released_at"`
	Summary    string `db:"summary"`
}

type AccessLog struct {
	ID       int64  `db:"id"`
	LoggedAt string `db:"logged_at"`
	Account  string `db:"account"`
	IP       string `db:"ip"`
	Action   string `db:"action"`
	Target   string `db:"target"`
	Detail   string `db:"detail"`
}

type PlayerProfile struct {
	Account   string `db:"account"`
	CreatedAt string `db:"created_at"`
	DeviceID  string `db:"device_id"`
	Team      string `db:"team"`
	Main      string `db:"main"`
}

type MatchSession struct {
	ID        int64  `db:"id"`
	Account   string `db:"account"`
	Character string `db:"character"`
	StartedAt string `db:"started_at"`
	Won       bool   `db:"won"`
}

// PlaythroughResult is a finished play-through on the leaderboard.
type PlaythroughResult struct {
	ID         string `db:"id"`
	ScriptID   string `db:"script_id"`
	PlayerName string `db:"player_name"`
	Score      int    `db:"score"`
	Badges     int    `db:"badges"`
	FinishedAt string `db:"finished_at"`
}
