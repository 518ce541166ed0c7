package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"supperclub/internal/domain"
	"supperclub/internal/events"
	"supperclub/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ApplicationService runs the host application review pipeline.
type ApplicationService struct {
	store  domain.Store
	hooks  *Hooks
	now    func() time.Time
	logger *zerolog.Logger
}

func NewApplicationService(store domain.Store, hooks *Hooks, logger *zerolog.Logger) *ApplicationService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ApplicationService{
		store:  store,
		hooks:  hooks,
		now:    time.Now,
		logger: logger,
	}
}

// ApprovalResult holds the documents materialized by an approval.
type ApprovalResult struct {
	Application *models.HostApplication `json:"application"`
	Host        *models.Host            `json:"host"`
	Experience  *models.Experience      `json:"experience"`
}

// SubmitApplication files a new Pending application for actor. An account
// document is created for first-time applicants.
func (s *ApplicationService) SubmitApplication(ctx context.Context, actor models.Actor, app models.HostApplication) (*models.HostApplication, error) {
	const op = "SubmitApplication"
	if actor.ID == "" {
		return nil, domain.PermissionDenied(op, "hostApplication", "", "authenticated applicant required")
	}
	if rule := validateApplication(&app); rule != "" {
		return nil, domain.Validation(op, "hostApplication", "", rule)
	}

	now := s.now().UTC()
	app.ID = uuid.NewString()
	app.UserID = actor.ID
	app.Status = models.ApplicationPending
	app.ExperienceID = ""
	app.ReviewedBy = ""
	app.ReviewedAt = nil
	app.SubmittedAt = now
	app.UpdatedAt = now
	if app.HostName == "" {
		app.HostName = app.Profile.DisplayName
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		var user models.User
		err := tx.Get(models.CollectionUsers, actor.ID, &user)
		if errors.Is(err, domain.ErrDocNotFound) {
			err = tx.Create(models.CollectionUsers, actor.ID, models.User{
				ID:          actor.ID,
				DisplayName: app.Profile.DisplayName,
				Role:        models.RoleGuest,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		if err != nil {
			return err
		}
		return tx.Create(models.CollectionApplications, app.ID, app)
	})
	if err != nil {
		err = txError(op, "hostApplication", app.ID, err)
	}
	observe(op, err)
	if err != nil {
		return nil, err
	}

	s.hooks.publish(events.EventApplicationSubmitted, events.ApplicationEventPayload{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		Status:        app.Status,
	})
	return &app, nil
}

func validateApplication(app *models.HostApplication) string {
	switch {
	case strings.TrimSpace(app.Profile.DisplayName) == "":
		return "profile.displayName is required"
	case strings.TrimSpace(app.Experience.Title) == "":
		return "experience.title is required"
	case app.Experience.PricePerGuest <= 0:
		return "experience.pricePerGuest must be positive"
	case app.Experience.MaxGuests < 1:
		return "experience.maxGuests must be at least 1"
	case strings.TrimSpace(app.Location.City) == "":
		return "location.city is required"
	case !app.Compliance.AgreedToTerms:
		return "compliance.agreedToTerms must be accepted"
	}
	return ""
}

// ApproveApplication approves an application in one commit: the application
// is marked Approved, the Host profile and the Experience listing are created
// and the applicant's role is promoted. Either all four writes land or none.
func (s *ApplicationService) ApproveApplication(ctx context.Context, actor models.Actor, applicationID string) (*ApprovalResult, error) {
	const op = "ApproveApplication"
	if !actor.IsAdmin() {
		err := domain.PermissionDenied(op, "hostApplication", applicationID, "admin role required")
		observe(op, err)
		return nil, err
	}

	now := s.now().UTC()
	experienceID := uuid.NewString()

	var result *ApprovalResult
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		var app models.HostApplication
		if err := tx.Get(models.CollectionApplications, applicationID, &app); err != nil {
			return readError(op, "hostApplication", applicationID, err)
		}
		if !models.CanTransitionApplication(app.Status, models.ApplicationApproved) {
			return domain.InvalidTransition(op, "hostApplication", applicationID, app.Status, models.ApplicationApproved)
		}

		var user models.User
		if err := tx.Get(models.CollectionUsers, app.UserID, &user); err != nil {
			return readError(op, "user", app.UserID, err)
		}

		host := hostFromApplication(&app, now)
		exp := experienceFromApplication(&app, experienceID, host.Name, now)

		if err := tx.Update(models.CollectionApplications, applicationID, map[string]any{
			"status":       models.ApplicationApproved,
			"experienceId": experienceID,
			"reviewedBy":   actor.ID,
			"reviewedAt":   now,
			"updatedAt":    now,
		}); err != nil {
			return err
		}
		if err := tx.Set(models.CollectionHosts, host.ID, host); err != nil {
			return err
		}
		if err := tx.Create(models.CollectionExperiences, exp.ID, exp); err != nil {
			return err
		}
		location := app.Location
		if err := tx.Update(models.CollectionUsers, app.UserID, map[string]any{
			"role":      models.PromotedRole(user.Role),
			"location":  location,
			"updatedAt": now,
		}); err != nil {
			return err
		}

		app.Status = models.ApplicationApproved
		app.ExperienceID = experienceID
		app.ReviewedBy = actor.ID
		app.ReviewedAt = &now
		app.UpdatedAt = now
		result = &ApprovalResult{Application: &app, Host: &host, Experience: &exp}
		return nil
	})
	if err != nil {
		err = txError(op, "hostApplication", applicationID, err)
	}
	observe(op, err)
	if err != nil {
		s.logger.Error().Err(err).Str("application_id", applicationID).Msg("approve application failed")
		return nil, err
	}

	app := result.Application
	s.hooks.notify(ctx, app.UserID, models.NotifyApplicationApproved, app.ID)
	s.hooks.audit(ctx, actor, "application.approve", models.CollectionApplications, app.ID, map[string]any{
		"experienceId": experienceID,
		"userId":       app.UserID,
	})
	s.publishReview(app)

	s.logger.Info().
		Str("application_id", app.ID).
		Str("experience_id", experienceID).
		Str("user_id", app.UserID).
		Msg("host application approved")
	return result, nil
}

func hostFromApplication(app *models.HostApplication, now time.Time) models.Host {
	name := app.HostName
	if name == "" {
		name = app.Profile.DisplayName
	}
	return models.Host{
		ID:                 app.UserID,
		UserID:             app.UserID,
		Name:               name,
		Bio:                app.Profile.Bio,
		Languages:          app.Profile.Languages,
		CulturalBackground: app.Profile.CulturalBackground,
		PhotoURL:           app.Profile.PhotoURL,
		Phone:              app.Profile.Phone,
		Location:           app.Location,
		HomeSetup:          app.HomeSetup,
		Compliance:         app.Compliance,
		IsVerified:         true,
		VerificationStatus: "verified",
		ApplicationID:      app.ID,
		CreatedAt:          now,
	}
}

func experienceFromApplication(app *models.HostApplication, id, hostName string, now time.Time) models.Experience {
	e := app.Experience
	return models.Experience{
		ID:              id,
		HostID:          app.UserID,
		HostName:        hostName,
		Title:           e.Title,
		Description:     e.Description,
		Cuisine:         e.Cuisine,
		DurationMinutes: e.DurationMinutes,
		PricePerGuest:   e.PricePerGuest,
		MaxGuests:       e.MaxGuests,
		Menu:            e.Menu,
		DietaryOptions:  e.DietaryOptions,
		Images:          e.Images,
		City:            app.Location.City,
		Country:         app.Location.Country,
		Availability: models.Availability{
			Days:      append([]string(nil), models.DefaultExperienceDays...),
			TimeSlots: []string{models.DefaultExperienceTimeSlot},
		},
		IsActive:  true,
		CreatedAt: now,
	}
}

// RejectApplication closes an application without creating anything.
func (s *ApplicationService) RejectApplication(ctx context.Context, actor models.Actor, applicationID string) (*models.HostApplication, error) {
	return s.review(ctx, "RejectApplication", actor, applicationID, models.ApplicationRejected, models.NotifyApplicationRejected, "application.reject")
}

// RequestChanges sends an application back to the applicant for edits.
func (s *ApplicationService) RequestChanges(ctx context.Context, actor models.Actor, applicationID string) (*models.HostApplication, error) {
	return s.review(ctx, "RequestChanges", actor, applicationID, models.ApplicationChangesNeeded, models.NotifyApplicationChanges, "application.request_changes")
}

func (s *ApplicationService) review(ctx context.Context, op string, actor models.Actor, applicationID, to, notificationType, action string) (*models.HostApplication, error) {
	if !actor.IsAdmin() {
		err := domain.PermissionDenied(op, "hostApplication", applicationID, "admin role required")
		observe(op, err)
		return nil, err
	}
	now := s.now().UTC()

	var app models.HostApplication
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		app = models.HostApplication{}
		if err := tx.Get(models.CollectionApplications, applicationID, &app); err != nil {
			return readError(op, "hostApplication", applicationID, err)
		}
		if !models.CanTransitionApplication(app.Status, to) {
			return domain.InvalidTransition(op, "hostApplication", applicationID, app.Status, to)
		}

		app.Status = to
		app.ReviewedBy = actor.ID
		app.ReviewedAt = &now
		app.UpdatedAt = now
		return tx.Update(models.CollectionApplications, applicationID, map[string]any{
			"status":     to,
			"reviewedBy": actor.ID,
			"reviewedAt": now,
			"updatedAt":  now,
		})
	})
	if err != nil {
		err = txError(op, "hostApplication", applicationID, err)
	}
	observe(op, err)
	if err != nil {
		return nil, err
	}

	s.hooks.notify(ctx, app.UserID, notificationType, app.ID)
	s.hooks.audit(ctx, actor, action, models.CollectionApplications, app.ID, nil)
	s.publishReview(&app)
	return &app, nil
}

func (s *ApplicationService) publishReview(app *models.HostApplication) {
	s.hooks.publish(events.EventApplicationReviewed, events.ApplicationEventPayload{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		Status:        app.Status,
		ExperienceID:  app.ExperienceID,
		ReviewedBy:    app.ReviewedBy,
	})
}
