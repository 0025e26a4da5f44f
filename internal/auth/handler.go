package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/cryptoscore/cryptoscore/internal/identity"
	"github.com/cryptoscore/cryptoscore/internal/metrics"
	"github.com/cryptoscore/cryptoscore/internal/notification"
)

const (
	msgRegistered   = "User registered successfully!"
	msgEmailTaken   = "Error: Email is already in use!"
	msgUnauthorized = "Error: Unauthorized"
	msgInternal     = "Error: Internal server error"
)

// Handler exposes the signup, signin, wallet-connect and profile endpoints.
type Handler struct {
	ids      *identity.Service
	issuer   *Issuer
	validate *validator.Validate
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewHandler builds the auth HTTP handler. notifier and m may be nil.
func NewHandler(ids *identity.Service, issuer *Issuer, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ids: ids, issuer: issuer, validate: v, notifier: notifier, metrics: m, logger: logger}
}

type signupRequest struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email,max=50"`
	Password  string `json:"password" validate:"required,min=6,max=40"`
}

type signinRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type walletConnectRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required,max=128"`
	// Signature is accepted for client compatibility but never verified.
	Signature string `json:"signature"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type profileResponse struct {
	ID                  string    `json:"id"`
	FirstName           string    `json:"firstName"`
	LastName            string    `json:"lastName"`
	Email               string    `json:"email"`
	WalletAddress       *string   `json:"walletAddress"`
	CreditScore         int       `json:"creditScore"`
	ReputationTokens    int       `json:"reputationTokens"`
	KYCVerified         bool      `json:"kycVerified"`
	OnboardingCompleted bool      `json:"onboardingCompleted"`
	Roles               []string  `json:"roles"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Signup registers an email/password user.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := h.bind(c, &req); err != nil {
		h.metrics.ObserveAuth(metrics.FlowSignup, metrics.OutcomeInvalid)
		return err
	}

	ctx := c.UserContext()
	user, err := h.ids.RegisterByCredentials(ctx, identity.RegisterInput{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
		Password:  req.Password,
	})
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		h.metrics.ObserveAuth(metrics.FlowSignup, metrics.OutcomeRejected)
		return fiber.NewError(http.StatusBadRequest, msgEmailTaken)
	case identity.IsValidation(err):
		h.metrics.ObserveAuth(metrics.FlowSignup, metrics.OutcomeInvalid)
		return fiber.NewError(http.StatusBadRequest, "Error: "+err.Error())
	case err != nil:
		h.metrics.ObserveAuth(metrics.FlowSignup, metrics.OutcomeError)
		return h.internal(ctx, "auth.signup failed", err)
	}

	h.metrics.ObserveAuth(metrics.FlowSignup, metrics.OutcomeCreated)
	h.logger.InfoContext(ctx, "auth.signup completed", slog.String("user_id", user.ID))
	h.notify(ctx, notification.Message{
		Kind:        notification.KindUserRegistered,
		UserID:      user.ID,
		Destination: user.Email,
		Body:        "Welcome to CryptoScore",
	})
	return c.Status(http.StatusOK).JSON(messageResponse{Message: msgRegistered})
}

// Signin verifies credentials and returns a session.
func (h *Handler) Signin(c *fiber.Ctx) error {
	var req signinRequest
	if err := h.bind(c, &req); err != nil {
		h.metrics.ObserveAuth(metrics.FlowSignin, metrics.OutcomeInvalid)
		return err
	}

	ctx := c.UserContext()
	user, err := h.ids.ResolveByCredentials(ctx, req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		h.metrics.ObserveAuth(metrics.FlowSignin, metrics.OutcomeRejected)
		return fiber.NewError(http.StatusUnauthorized, msgUnauthorized)
	}
	if err != nil {
		h.metrics.ObserveAuth(metrics.FlowSignin, metrics.OutcomeError)
		return h.internal(ctx, "auth.signin failed", err)
	}

	resp, err := h.issuer.Issue(user)
	if err != nil {
		h.metrics.ObserveAuth(metrics.FlowSignin, metrics.OutcomeError)
		return h.internal(ctx, "auth.signin issue token failed", err)
	}
	h.metrics.ObserveAuth(metrics.FlowSignin, metrics.OutcomeSuccess)
	return c.Status(http.StatusOK).JSON(resp)
}

// WalletConnect resolves or lazily creates the wallet's user and returns a
// session. The signature field is not verified.
func (h *Handler) WalletConnect(c *fiber.Ctx) error {
	var req walletConnectRequest
	if err := h.bind(c, &req); err != nil {
		h.metrics.ObserveAuth(metrics.FlowWalletConnect, metrics.OutcomeInvalid)
		return err
	}

	ctx := c.UserContext()
	user, created, err := h.ids.ResolveOrCreateByWallet(ctx, req.WalletAddress)
	switch {
	case identity.IsValidation(err):
		h.metrics.ObserveAuth(metrics.FlowWalletConnect, metrics.OutcomeInvalid)
		return fiber.NewError(http.StatusBadRequest, "Error: "+err.Error())
	case errors.Is(err, identity.ErrIdentityConflict):
		h.metrics.ObserveAuth(metrics.FlowWalletConnect, metrics.OutcomeRejected)
		return fiber.NewError(http.StatusConflict, "Error: "+err.Error())
	case err != nil:
		h.metrics.ObserveAuth(metrics.FlowWalletConnect, metrics.OutcomeError)
		return h.internal(ctx, "auth.wallet_connect failed", err)
	}

	resp, err := h.issuer.Issue(user)
	if err != nil {
		h.metrics.ObserveAuth(metrics.FlowWalletConnect, metrics.OutcomeError)
		return h.internal(ctx, "auth.wallet_connect issue token failed", err)
	}

	if created {
		h.metrics.ObserveAuth(metrics.FlowWalletConnect, metrics.OutcomeCreated)
		h.notify(ctx, notification.Message{
			Kind:        notification.KindWalletIdentityCreated,
			UserID:      user.ID,
			Destination: user.WalletAddress,
			Body:        "Wallet connected",
		})
	} else {
		h.metrics.ObserveAuth(metrics.FlowWalletConnect, metrics.OutcomeSuccess)
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// Me returns the profile of the authenticated caller.
func (h *Handler) Me(c *fiber.Ctx) error {
	principal, ok := PrincipalFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, msgUnauthorized)
	}

	ctx := c.UserContext()
	user, err := h.ids.FindByID(ctx, principal.Subject)
	if errors.Is(err, identity.ErrNotFound) {
		return fiber.NewError(http.StatusUnauthorized, msgUnauthorized)
	}
	if err != nil {
		return h.internal(ctx, "auth.me failed", err)
	}

	var wallet *string
	if user.HasWallet() {
		w := user.WalletAddress
		wallet = &w
	}
	return c.Status(http.StatusOK).JSON(profileResponse{
		ID:                  user.ID,
		FirstName:           user.FirstName,
		LastName:            user.LastName,
		Email:               user.Email,
		WalletAddress:       wallet,
		CreditScore:         user.CreditScore,
		ReputationTokens:    user.ReputationTokens,
		KYCVerified:         user.KYCVerified,
		OnboardingCompleted: user.OnboardingCompleted,
		Roles:               user.Roles.Names(),
		CreatedAt:           user.CreatedAt,
	})
}

func (h *Handler) bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Error: malformed request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, validationMessage(err))
	}
	return nil
}

func (h *Handler) internal(ctx context.Context, msg string, err error) error {
	h.logger.ErrorContext(ctx, msg, slog.Any("error", err))
	return fiber.NewError(http.StatusInternalServerError, msgInternal)
}

func (h *Handler) notify(ctx context.Context, msg notification.Message) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Send(ctx, msg); err != nil {
		h.logger.WarnContext(ctx, "notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Error: invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Error: %s is required", fe.Field())
	case "email":
		return fmt.Sprintf("Error: %s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("Error: %s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("Error: %s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Error: %s is invalid", fe.Field())
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}
