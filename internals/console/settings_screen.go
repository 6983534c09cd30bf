// file: internals/console/settings_screen.go
package console

import (
	"context"

	settingsModel "tutorhub_backend/internals/features/payments/settings/model"
)

// SettingsState keeps one draft/committed pair per section.
type SettingsState struct {
	General        Editable[settingsModel.GeneralSettings]
	Notification   Editable[settingsModel.NotificationSettings]
	PaymentMethods Editable[settingsModel.PaymentMethodSettings]
	Security       Editable[settingsModel.SecuritySettings]
	Source         Source
	Err            *FetchError
}

func settingsState(s settingsModel.Settings) SettingsState {
	return SettingsState{
		General:        NewEditable(s.General),
		Notification:   NewEditable(s.Notification),
		PaymentMethods: NewEditable(s.PaymentMethods),
		Security:       NewEditable(s.Security),
	}
}

// Diff reports the changed fields of one section.
func (st SettingsState) Diff(section settingsModel.Section) []Change {
	switch section {
	case settingsModel.SectionGeneral:
		return st.General.Diff()
	case settingsModel.SectionNotification:
		return st.Notification.Diff()
	case settingsModel.SectionPaymentMethods:
		return st.PaymentMethods.Diff()
	case settingsModel.SectionSecurity:
		return st.Security.Diff()
	}
	return nil
}

func (st SettingsState) HasChanges(section settingsModel.Section) bool {
	return len(st.Diff(section)) > 0
}

// Dirty lists sections with unsaved edits.
func (st SettingsState) Dirty() []settingsModel.Section {
	var out []settingsModel.Section
	for _, s := range settingsModel.AllSections {
		if st.HasChanges(s) {
			out = append(out, s)
		}
	}
	return out
}

func (st SettingsState) Reset(section settingsModel.Section) SettingsState {
	switch section {
	case settingsModel.SectionGeneral:
		st.General = st.General.Reset()
	case settingsModel.SectionNotification:
		st.Notification = st.Notification.Reset()
	case settingsModel.SectionPaymentMethods:
		st.PaymentMethods = st.PaymentMethods.Reset()
	case settingsModel.SectionSecurity:
		st.Security = st.Security.Reset()
	}
	return st
}

func (st SettingsState) draft(section settingsModel.Section) any {
	switch section {
	case settingsModel.SectionGeneral:
		return st.General.Draft()
	case settingsModel.SectionNotification:
		return st.Notification.Draft()
	case settingsModel.SectionPaymentMethods:
		return st.PaymentMethods.Draft()
	case settingsModel.SectionSecurity:
		return st.Security.Draft()
	}
	return nil
}

// commit takes the server's copy of section; other drafts are untouched.
func (st SettingsState) commit(section settingsModel.Section, saved settingsModel.Settings) SettingsState {
	switch section {
	case settingsModel.SectionGeneral:
		st.General = st.General.Commit(saved.General)
	case settingsModel.SectionNotification:
		st.Notification = st.Notification.Commit(saved.Notification)
	case settingsModel.SectionPaymentMethods:
		st.PaymentMethods = st.PaymentMethods.Commit(saved.PaymentMethods)
	case settingsModel.SectionSecurity:
		st.Security = st.Security.Commit(saved.Security)
	}
	return st
}

type SettingsScreen struct {
	Client *Client
}

func (s SettingsScreen) Load(ctx context.Context) SettingsState {
	res := s.Client.Settings(ctx)
	st := settingsState(res.Data)
	st.Source, st.Err = res.Source, res.Err
	return st
}

// Save persists the whole section; nothing is sent when the draft is unchanged.
func (s SettingsScreen) Save(ctx context.Context, st SettingsState, section settingsModel.Section) (SettingsState, error) {
	if !st.HasChanges(section) {
		return st, nil
	}
	saved, err := s.Client.SaveSettings(ctx, section, st.draft(section))
	if err != nil {
		return st, err
	}
	return st.commit(section, saved), nil
}
