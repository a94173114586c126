package model

// Identity is the requester resolved by the auth gate.  It is passed
// explicitly to every service call that needs to know who is asking.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Anonymous reports whether no user was resolved.
func (i Identity) Anonymous() bool { return i.UserID == "" }
