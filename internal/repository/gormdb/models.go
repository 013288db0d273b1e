package gormdb

import (
	"time"

	"github.com/sakif/stepwise/internal/model"
)

// userRow is the gorm mapping of the users table. It stays private so the
// gorm tags never leak into the domain model.
type userRow struct {
	ID                int64   `gorm:"primaryKey;autoIncrement"`
	ExternalID        string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	FirstName         string  `gorm:"type:varchar(255);not null"`
	LastName          string  `gorm:"type:varchar(255);not null"`
	Username          string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	Email             string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	ProfileImage      *string `gorm:"type:text"`
	LastProblemNumber int     `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (userRow) TableName() string { return "users" }

type solutionRow struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	UserID         int64     `gorm:"not null;uniqueIndex:idx_solutions_user_number,priority:1;index:idx_solutions_user_created,priority:1"`
	User           *userRow  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	ExternalID     string    `gorm:"type:varchar(255);not null;index"`
	ProblemNumber  int       `gorm:"not null;uniqueIndex:idx_solutions_user_number,priority:2"`
	ProblemType    string    `gorm:"type:varchar(16);not null"`
	ProblemContent string    `gorm:"type:text;not null"`
	MimeType       *string   `gorm:"type:varchar(64)"`
	Solution       string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"not null;index:idx_solutions_user_created,priority:2"`
}

func (solutionRow) TableName() string { return "solutions" }

func (r *userRow) toModel() *model.User {
	return &model.User{
		ID:                r.ID,
		ExternalID:        r.ExternalID,
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Username:          r.Username,
		Email:             r.Email,
		ProfileImage:      r.ProfileImage,
		LastProblemNumber: r.LastProblemNumber,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (r *solutionRow) toModel() model.Solution {
	return model.Solution{
		ID:             r.ID,
		UserID:         r.UserID,
		ExternalID:     r.ExternalID,
		ProblemNumber:  r.ProblemNumber,
		ProblemType:    model.ProblemType(r.ProblemType),
		ProblemContent: r.ProblemContent,
		MimeType:       r.MimeType,
		Solution:       r.Solution,
		CreatedAt:      r.CreatedAt,
	}
}
