package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Buyer is a single lead record.
type Buyer struct {
	ID      string `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID string `gorm:"type:varchar(36);not null;index" json:"ownerId"`

	FullName string `gorm:"type:varchar(80);not null" json:"fullName"`
	Email    string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone    string `gorm:"type:varchar(15);not null;index" json:"phone"`

	City         City         `gorm:"type:varchar(20);not null;index" json:"city"`
	PropertyType PropertyType `gorm:"type:varchar(20);not null;index" json:"propertyType"`
	BHK          BHK          `gorm:"type:varchar(10)" json:"bhk,omitempty"`
	Purpose      Purpose      `gorm:"type:varchar(10);not null" json:"purpose"`

	BudgetMin *int `gorm:"type:int" json:"budgetMin,omitempty"`
	BudgetMax *int `gorm:"type:int" json:"budgetMax,omitempty"`

	Timeline Timeline `gorm:"type:varchar(20);not null;index" json:"timeline"`
	Source   Source   `gorm:"type:varchar(20);not null" json:"source"`
	Status   Status   `gorm:"type:varchar(20);not null;default:'New';index" json:"status"`

	Notes string     `gorm:"type:text" json:"notes,omitempty"`
	Tags  StringList `gorm:"type:text" json:"tags"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null;autoCreateTime:false;index:idx_buyers_created_at,sort:desc" json:"createdAt"`
	// UpdatedAt doubles as the optimistic-concurrency version token.
	UpdatedAt time.Time `gorm:"type:datetime(3);not null;autoUpdateTime:false;index" json:"updatedAt"`
}

func (Buyer) TableName() string {
	return "buyers"
}

// NeedsBHK reports whether the property type requires a BHK value.
func (b *Buyer) NeedsBHK() bool {
	return b.PropertyType == PropertyApartment || b.PropertyType == PropertyVilla
}

type City string

const (
	CityChandigarh City = "Chandigarh"
	CityMohali     City = "Mohali"
	CityZirakpur   City = "Zirakpur"
	CityPanchkula  City = "Panchkula"
	CityOther      City = "Other"
)

type PropertyType string

const (
	PropertyApartment PropertyType = "Apartment"
	PropertyVilla     PropertyType = "Villa"
	PropertyPlot      PropertyType = "Plot"
	PropertyOffice    PropertyType = "Office"
	PropertyRetail    PropertyType = "Retail"
)

type BHK string

const (
	BHKStudio BHK = "Studio"
	BHKOne    BHK = "1"
	BHKTwo    BHK = "2"
	BHKThree  BHK = "3"
	BHKFour   BHK = "4"
)

type Purpose string

const (
	PurposeBuy  Purpose = "Buy"
	PurposeRent Purpose = "Rent"
)

type Timeline string

const (
	TimelineImmediate Timeline = "0-3m"
	TimelineShort     Timeline = "3-6m"
	TimelineLong      Timeline = ">6m"
	TimelineExploring Timeline = "Exploring"
)

type Source string

const (
	SourceWebsite  Source = "Website"
	SourceReferral Source = "Referral"
	SourceWalkIn   Source = "Walk-in"
	SourceCall     Source = "Call"
	SourceOther    Source = "Other"
)

type Status string

const (
	StatusNew         Status = "New"
	StatusQualified   Status = "Qualified"
	StatusContacted   Status = "Contacted"
	StatusVisited     Status = "Visited"
	StatusNegotiation Status = "Negotiation"
	StatusConverted   Status = "Converted"
	StatusDropped     Status = "Dropped"
)

// ValidCity and friends report enum membership. The zero value is not valid.
func ValidCity(v string) bool {
	switch City(v) {
	case CityChandigarh, CityMohali, CityZirakpur, CityPanchkula, CityOther:
		return true
	}
	return false
}

func ValidPropertyType(v string) bool {
	switch PropertyType(v) {
	case PropertyApartment, PropertyVilla, PropertyPlot, PropertyOffice, PropertyRetail:
		return true
	}
	return false
}

func ValidBHK(v string) bool {
	switch BHK(v) {
	case BHKStudio, BHKOne, BHKTwo, BHKThree, BHKFour:
		return true
	}
	return false
}

func ValidPurpose(v string) bool {
	switch Purpose(v) {
	case PurposeBuy, PurposeRent:
		return true
	}
	return false
}

func ValidTimeline(v string) bool {
	switch Timeline(v) {
	case TimelineImmediate, TimelineShort, TimelineLong, TimelineExploring:
		return true
	}
	return false
}

func ValidSource(v string) bool {
	switch Source(v) {
	case SourceWebsite, SourceReferral, SourceWalkIn, SourceCall, SourceOther:
		return true
	}
	return false
}

func ValidStatus(v string) bool {
	switch Status(v) {
	case StatusNew, StatusQualified, StatusContacted, StatusVisited,
		StatusNegotiation, StatusConverted, StatusDropped:
		return true
	}
	return false
}

// StringList stores an ordered list of tags as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = StringList{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}

	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(l))
}
