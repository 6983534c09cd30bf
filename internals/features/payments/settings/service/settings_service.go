// file: internals/features/payments/settings/service/settings_service.go
package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "tutorhub_backend/internals/features/payments/settings/model"
	helper "tutorhub_backend/internals/helpers"
)

var (
	ErrUnknownSection = fiber.NewError(fiber.StatusBadRequest, "unknown settings section")
	ErrUnknownMethod  = fiber.NewError(fiber.StatusNotFound, "payment method not found")
	ErrMethodDisabled = fiber.NewError(fiber.StatusConflict, "payment method is disabled")
)

// Load returns every section, defaults filling sections that were never saved.
func Load(ctx context.Context, db *gorm.DB) (model.Settings, error) {
	out := model.DefaultSettings()

	var rows []model.PaymentSetting
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return out, errors.Wrap(err, "load settings")
	}
	for _, r := range rows {
		var target any
		switch r.PaymentSettingSection {
		case model.SectionGeneral:
			target = &out.General
		case model.SectionNotification:
			target = &out.Notification
		case model.SectionPaymentMethods:
			target = &out.PaymentMethods
		case model.SectionSecurity:
			target = &out.Security
		default:
			continue
		}
		if err := json.Unmarshal(r.PaymentSettingData, target); err != nil {
			return out, errors.Wrapf(err, "decode settings section %s", r.PaymentSettingSection)
		}
	}
	return out, nil
}

// General is the section the ledger, links and overdue sweep read.
func General(ctx context.Context, db *gorm.DB) (model.GeneralSettings, error) {
	s, err := Load(ctx, db)
	return s.General, err
}

// Save validates data as the named section and upserts it.
func Save(ctx context.Context, db *gorm.DB, section model.Section, data json.RawMessage, actor string) (model.Settings, error) {
	var doc any
	switch section {
	case model.SectionGeneral:
		doc = &model.GeneralSettings{}
	case model.SectionNotification:
		doc = &model.NotificationSettings{}
	case model.SectionPaymentMethods:
		doc = &model.PaymentMethodSettings{}
	case model.SectionSecurity:
		doc = &model.SecuritySettings{}
	default:
		return model.Settings{}, ErrUnknownSection
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(doc); err != nil {
		return model.Settings{}, fiber.NewError(fiber.StatusBadRequest, "invalid section data: "+err.Error())
	}
	if err := helper.Validate.Struct(doc); err != nil {
		return model.Settings{}, err
	}
	if pm, ok := doc.(*model.PaymentMethodSettings); ok {
		for _, m := range pm.Methods {
			if _, err := compileFormula(m.ProcessingFeeFormula); err != nil {
				return model.Settings{}, fiber.NewError(fiber.StatusBadRequest,
					"invalid processingFeeFormula for "+m.Name+": "+err.Error())
			}
		}
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return model.Settings{}, errors.Wrap(err, "encode settings")
	}
	row := model.PaymentSetting{
		PaymentSettingSection:   section,
		PaymentSettingData:      normalized,
		PaymentSettingUpdatedBy: actor,
	}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_setting_section"}},
		DoUpdates: clause.AssignmentColumns([]string{"payment_setting_data", "payment_setting_updated_by", "payment_setting_updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return model.Settings{}, errors.Wrap(err, "save settings")
	}
	return Load(ctx, db)
}

/* ===============================
   Processing fee
=================================*/

func compileFormula(formula string) (*govaluate.EvaluableExpression, error) {
	if strings.TrimSpace(formula) == "" {
		formula = "0"
	}
	expr, err := govaluate.NewEvaluableExpression(formula)
	if err != nil {
		return nil, err
	}
	for _, v := range expr.Vars() {
		if v != "amount" {
			return nil, errors.Errorf("unknown variable %q (only amount is available)", v)
		}
	}
	return expr, nil
}

// EvaluateFee applies formula to amount (minor units) and rounds half away from zero.
func EvaluateFee(formula string, amount int64) (int64, error) {
	expr, err := compileFormula(formula)
	if err != nil {
		return 0, err
	}
	res, err := expr.Evaluate(map[string]interface{}{"amount": float64(amount)})
	if err != nil {
		return 0, errors.Wrap(err, "evaluate fee formula")
	}
	f, ok := res.(float64)
	if !ok {
		return 0, errors.Errorf("fee formula must yield a number, got %T", res)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, errors.Errorf("fee formula yielded %v", f)
	}
	return int64(math.Round(f)), nil
}

// FeePreview evaluates the processing fee of the named method.
func FeePreview(ctx context.Context, db *gorm.DB, method string, amount int64) (int64, error) {
	s, err := Load(ctx, db)
	if err != nil {
		return 0, err
	}
	m, ok := s.PaymentMethods.Method(method)
	if !ok {
		return 0, ErrUnknownMethod
	}
	if !m.Enabled {
		return 0, ErrMethodDisabled
	}
	fee, err := EvaluateFee(m.ProcessingFeeFormula, amount)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return fee, nil
}
