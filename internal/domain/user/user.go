package user

import (
	"strings"
	"time"
)

// Profile holds the optional accounting, address, business and contact
// details a user can fill in after registration.
type Profile struct {
	PANNumber      string `json:"panNumber"`
	AadharNumber   string `json:"aadharNumber"`
	GSTNumber      string `json:"gstNumber"`
	AccountNumber  string `json:"accountNumber"`
	IFSCCode       string `json:"ifscCode"`
	BankName       string `json:"bankName"`
	BankBranch     string `json:"bankBranch"`
	Address        string `json:"address"`
	City           string `json:"city"`
	State          string `json:"state"`
	Pincode        string `json:"pincode"`
	CompanyName    string `json:"companyName"`
	BusinessType   string `json:"businessType"`
	PhoneNumber    string `json:"phoneNumber"`
	AlternatePhone string `json:"alternatePhone"`
}

type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest is the whitelist of fields a profile update may touch.
// Omitted optional fields are cleared, matching a full replacement.
type UpdateProfileRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`

	PANNumber      string `json:"panNumber" binding:"omitempty,max=20"`
	AadharNumber   string `json:"aadharNumber" binding:"omitempty,max=20"`
	GSTNumber      string `json:"gstNumber" binding:"omitempty,max=20"`
	AccountNumber  string `json:"accountNumber" binding:"omitempty,max=34"`
	IFSCCode       string `json:"ifscCode" binding:"omitempty,max=20"`
	BankName       string `json:"bankName" binding:"omitempty,max=120"`
	BankBranch     string `json:"bankBranch" binding:"omitempty,max=120"`
	Address        string `json:"address" binding:"omitempty,max=500"`
	City           string `json:"city" binding:"omitempty,max=80"`
	State          string `json:"state" binding:"omitempty,max=80"`
	Pincode        string `json:"pincode" binding:"omitempty,max=12"`
	CompanyName    string `json:"companyName" binding:"omitempty,max=200"`
	BusinessType   string `json:"businessType" binding:"omitempty,max=80"`
	PhoneNumber    string `json:"phoneNumber" binding:"omitempty,max=20"`
	AlternatePhone string `json:"alternatePhone" binding:"omitempty,max=20"`
}

// Apply copies the whitelisted fields onto u. Identifier-like fields are
// trimmed before storage.
func (r UpdateProfileRequest) Apply(u *User) {
	u.FirstName = strings.TrimSpace(r.FirstName)
	u.LastName = strings.TrimSpace(r.LastName)
	u.Email = NormalizeEmail(r.Email)

	u.Profile = Profile{
		PANNumber:      strings.TrimSpace(r.PANNumber),
		AadharNumber:   strings.TrimSpace(r.AadharNumber),
		GSTNumber:      strings.TrimSpace(r.GSTNumber),
		AccountNumber:  strings.TrimSpace(r.AccountNumber),
		IFSCCode:       strings.TrimSpace(r.IFSCCode),
		BankName:       r.BankName,
		BankBranch:     r.BankBranch,
		Address:        r.Address,
		City:           r.City,
		State:          r.State,
		Pincode:        r.Pincode,
		CompanyName:    r.CompanyName,
		BusinessType:   r.BusinessType,
		PhoneNumber:    r.PhoneNumber,
		AlternatePhone: r.AlternatePhone,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Projection variants for the current-user endpoint.
const (
	ViewMinimal  = "minimal"
	ViewExtended = "extended"
)

type MinimalView struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
}

type ExtendedView struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Profile
}

// Project renders u in the requested view; unknown views fall back to minimal.
func (u User) Project(view string) any {
	if view == ViewExtended {
		return ExtendedView{
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Profile:   u.Profile,
		}
	}

	return MinimalView{Email: u.Email, FirstName: u.FirstName}
}
