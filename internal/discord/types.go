package discord

// User is the shape returned by GET /users/@me.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
	Banner     string `json:"banner"`
}

// Guild is one entry of GET /users/@me/guilds. Permissions is a
// decimal-string-encoded bit field; snowflakes and permission fields
// can exceed 53 bits, so they stay strings until parsed as uint64.
type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Owner       bool   `json:"owner"`
	Permissions string `json:"permissions"`
}
