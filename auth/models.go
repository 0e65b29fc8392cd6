package auth

import "fightleague/fighter"

// RegisterRequest contains fighter registration data supplied by callers.
type RegisterRequest struct {
	Email       string       `json:"email"`
	Password    string       `json:"password"`
	DisplayName string       `json:"display_name"`
	WeightClass string       `json:"weight_class"`
	Role        fighter.Role `json:"role"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult bundles the token and account returned after a successful login.
type LoginResult struct {
	Token   string
	Account fighter.Account
}
