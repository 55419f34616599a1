package accounts

import "time"

// Account models a chart of accounts node. IsActive gates selection on new
// entries only; inactive accounts stay visible in historical ledgers.
type Account struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	GroupName string    `json:"group_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Label renders "code - name" for print views.
func (a Account) Label() string {
	if a.Code == "" {
		return a.Name
	}
	return a.Code + " - " + a.Name
}
