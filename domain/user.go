package domain

type User struct {
	Id           string
	Email        string
	PasswordHash string
}

type UserDetails struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Age         int    `json:"age"`
}

// BestScore is one leaderboard row. AverageMs is the mean reaction time
// of a finished match, in milliseconds.
type BestScore struct {
	Id        int64   `json:"id"`
	Email     string  `json:"email"`
	AverageMs float64 `json:"averageMs"`
}
