package backoffice

// User is the authenticated principal as reported by the back-office API.
// A refresh replaces the whole value; there is no partial merge.
type User struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Username        string       `json:"username"`
	Email           string       `json:"email"`
	Phone           string       `json:"phone,omitempty"`
	Role            string       `json:"role"`
	Status          string       `json:"status"`
	HasTempPassword bool         `json:"has_temp_password"`
	LoginTime       string       `json:"login_time,omitempty"`
	Departments     []Department `json:"departments,omitempty"`
}

// Department is an organizational unit the user belongs to.
type Department struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// RoleEntry is one role definition from the catalog endpoint.
type RoleEntry struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Permissions []string `json:"permissions"`
}

// Credentials carry the login identifier and secret.
type Credentials struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

// LoginResult is the outcome of a successful login call. Token may still
// be empty when the upstream answers 200 without a token; callers must
// treat that as a failed login.
type LoginResult struct {
	Token string
	User  User
}
