// file: internals/features/payments/settings/model/payment_settings_model.go
package model

import (
	"time"

	"gorm.io/datatypes"
)

type Section string

const (
	SectionGeneral        Section = "general"
	SectionNotification   Section = "notification"
	SectionPaymentMethods Section = "payment_methods"
	SectionSecurity       Section = "security"
)

var AllSections = []Section{SectionGeneral, SectionNotification, SectionPaymentMethods, SectionSecurity}

func (s Section) Valid() bool {
	for _, x := range AllSections {
		if x == s {
			return true
		}
	}
	return false
}

// PaymentSetting is one row per settings section; data holds the section document.
type PaymentSetting struct {
	PaymentSettingSection   Section        `gorm:"column:payment_setting_section;type:varchar(40);primaryKey" json:"section"`
	PaymentSettingData      datatypes.JSON `gorm:"column:payment_setting_data;type:jsonb;not null" json:"data"`
	PaymentSettingUpdatedBy string         `gorm:"column:payment_setting_updated_by;type:varchar(120)" json:"updatedBy"`
	PaymentSettingUpdatedAt time.Time      `gorm:"column:payment_setting_updated_at;autoUpdateTime" json:"updatedAt"`
}

func (PaymentSetting) TableName() string { return "payment_settings" }

/* ===============================
   Section documents
=================================*/

type GeneralSettings struct {
	Currency                 string `json:"currency" validate:"required,len=3,uppercase"`
	AllowPartialPayments     bool   `json:"allowPartialPayments"`
	DefaultPartialPercentage int    `json:"defaultPartialPercentage" validate:"min=10,max=90"`
	PartialPaymentDueDays    int    `json:"partialPaymentDueDays" validate:"min=1,max=365"`
	OverdueAfterDays         int    `json:"overdueAfterDays" validate:"min=0,max=365"`
}

type NotificationSettings struct {
	EmailEnabled          bool   `json:"emailEnabled"`
	SMSEnabled            bool   `json:"smsEnabled"`
	ReminderFrequencyDays int    `json:"reminderFrequencyDays" validate:"min=1,max=90"`
	MaxReminders          int    `json:"maxReminders" validate:"min=0,max=50"`
	SenderEmail           string `json:"senderEmail" validate:"omitempty,email"`
}

type PaymentMethod struct {
	Name                 string `json:"name" validate:"required,max=60"`
	Enabled              bool   `json:"enabled"`
	ProcessingFeeFormula string `json:"processingFeeFormula" validate:"max=200"`
}

type PaymentMethodSettings struct {
	Methods []PaymentMethod `json:"methods" validate:"dive"`
}

type SecuritySettings struct {
	RequireTwoFactor      bool     `json:"requireTwoFactor"`
	SessionTimeoutMinutes int      `json:"sessionTimeoutMinutes" validate:"min=5,max=1440"`
	IPWhitelist           []string `json:"ipWhitelist" validate:"dive,ip|cidr"`
}

// Settings is the full panel as served to the console.
type Settings struct {
	General        GeneralSettings       `json:"general"`
	Notification   NotificationSettings  `json:"notification"`
	PaymentMethods PaymentMethodSettings `json:"paymentMethods"`
	Security       SecuritySettings      `json:"security"`
}

func DefaultSettings() Settings {
	return Settings{
		General: GeneralSettings{
			Currency:                 "IDR",
			AllowPartialPayments:     true,
			DefaultPartialPercentage: 50,
			PartialPaymentDueDays:    30,
			OverdueAfterDays:         7,
		},
		Notification: NotificationSettings{
			EmailEnabled:          true,
			SMSEnabled:            false,
			ReminderFrequencyDays: 3,
			MaxReminders:          5,
		},
		PaymentMethods: PaymentMethodSettings{
			Methods: []PaymentMethod{
				{Name: "bank_transfer", Enabled: true, ProcessingFeeFormula: "4000"},
				{Name: "credit_card", Enabled: true, ProcessingFeeFormula: "amount * 0.029 + 2000"},
				{Name: "gopay", Enabled: true, ProcessingFeeFormula: "amount * 0.02"},
			},
		},
		Security: SecuritySettings{
			RequireTwoFactor:      false,
			SessionTimeoutMinutes: 60,
			IPWhitelist:           []string{},
		},
	}
}

// Method returns the named method, enabled or not.
func (p PaymentMethodSettings) Method(name string) (PaymentMethod, bool) {
	for _, m := range p.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return PaymentMethod{}, false
}
