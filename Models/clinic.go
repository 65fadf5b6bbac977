package Models

import "gorm.io/gorm"

type Clinic struct {
	gorm.Model
	Name    string `json:"name" gorm:"size:255;not null"`
	Slug    string `json:"slug" gorm:"size:100;not null;uniqueIndex"`
	Logo    string `json:"logo"`
	OwnerID uint   `json:"owner_id" gorm:"index"`
	Website string `json:"website"`
	Phone   string `json:"phone" gorm:"size:50"`
	Address string `json:"address"`
}
