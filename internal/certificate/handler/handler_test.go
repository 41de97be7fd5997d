package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ysvs/internal/certificate/models"
	"ysvs/internal/platform/middleware"
	id "ysvs/pkg/domain"
	dErrors "ysvs/pkg/domain-errors"
	"ysvs/pkg/testutil"
)

// stubService lets each test pin the behavior of the single operation it
// exercises.
type stubService struct {
	issue         func(ctx context.Context, regID id.RegistrationID, templateID *id.TemplateID) (*models.Certificate, error)
	issueForEvent func(ctx context.Context, eventID id.EventID, templateID *id.TemplateID) (*models.BulkResult, error)
	revoke        func(ctx context.Context, certID id.CertificateID, reason string) (*models.Certificate, error)
	verify        func(ctx context.Context, serialNumber string) (*models.VerificationResult, error)
	get           func(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
}

func (s *stubService) Issue(ctx context.Context, regID id.RegistrationID, templateID *id.TemplateID) (*models.Certificate, error) {
	return s.issue(ctx, regID, templateID)
}

func (s *stubService) IssueForEvent(ctx context.Context, eventID id.EventID, templateID *id.TemplateID) (*models.BulkResult, error) {
	return s.issueForEvent(ctx, eventID, templateID)
}

func (s *stubService) Revoke(ctx context.Context, certID id.CertificateID, reason string) (*models.Certificate, error) {
	return s.revoke(ctx, certID, reason)
}

func (s *stubService) Verify(ctx context.Context, serialNumber string) (*models.VerificationResult, error) {
	return s.verify(ctx, serialNumber)
}

func (s *stubService) GetCertificate(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	return s.get(ctx, certID)
}

type CertificateHandlerSuite struct {
	suite.Suite
	stub   *stubService
	router *chi.Mux
	admin  id.UserID
	member id.UserID
}

func (s *CertificateHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.stub = &stubService{}
	s.admin = id.UserID(uuid.New())
	s.member = id.UserID(uuid.New())

	h := New(s.stub, logger)
	s.router = chi.NewRouter()
	h.RegisterPublic(s.router)
	h.Register(s.router, middleware.RequireAdmin(logger))
}

func TestCertificateHandlerSuite(t *testing.T) {
	suite.Run(t, new(CertificateHandlerSuite))
}

func (s *CertificateHandlerSuite) sampleCertificate() *models.Certificate {
	now := time.Now()
	return &models.Certificate{
		ID:             id.CertificateID(uuid.New()),
		RegistrationID: id.RegistrationID(uuid.New()),
		SerialNumber:   "YSVS-2026-00042",
		RecipientName:  "Dr. Example",
		EventTitle:     "Annual Vascular Congress",
		CMEHours:       8,
		IsValid:        true,
		IssuedAt:       now,
		UpdatedAt:      now,
	}
}

func (s *CertificateHandlerSuite) TestVerifyIsPublic() {
	s.stub.verify = func(_ context.Context, serialNumber string) (*models.VerificationResult, error) {
		s.Equal("YSVS-2026-00042", serialNumber)
		return &models.VerificationResult{Valid: true}, nil
	}

	req := testutil.NewRequest(s.T(), http.MethodGet, "/certificates/verify/YSVS-2026-00042")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	result := testutil.UnmarshalResponse[models.VerificationResult](s.T(), rr)
	s.True(result.Valid)
}

func (s *CertificateHandlerSuite) TestIssueRequiresAdmin() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/certificates/generate/"+uuid.NewString(), nil)
	rr := testutil.DoRequest(s.router, testutil.WithUser(req, s.member))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *CertificateHandlerSuite) TestIssue() {
	cert := s.sampleCertificate()
	s.stub.issue = func(_ context.Context, regID id.RegistrationID, templateID *id.TemplateID) (*models.Certificate, error) {
		s.Equal(cert.RegistrationID, regID)
		s.Nil(templateID)
		return cert, nil
	}

	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/certificates/generate/"+cert.RegistrationID.String(), nil)
	rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, s.admin))

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	testutil.AssertJSONContains(s.T(), rr, "serial_number", cert.SerialNumber)
}

func (s *CertificateHandlerSuite) TestIssueRejectsMalformedRegistrationID() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certificates/generate/not-a-uuid", nil)
	rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, s.admin))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
}

func (s *CertificateHandlerSuite) TestIssueBulk() {
	eventID := id.EventID(uuid.New())
	s.stub.issueForEvent = func(_ context.Context, gotEvent id.EventID, templateID *id.TemplateID) (*models.BulkResult, error) {
		s.Equal(eventID, gotEvent)
		s.Nil(templateID)
		return &models.BulkResult{Generated: 3, Skipped: 1}, nil
	}

	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/certificates/generate-bulk/"+eventID.String(), nil)
	rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, s.admin))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	result := testutil.UnmarshalResponse[models.BulkResult](s.T(), rr)
	s.Equal(3, result.Generated)
	s.Equal(1, result.Skipped)
	s.Empty(result.Errors)
}

func (s *CertificateHandlerSuite) TestRevoke() {
	cert := s.sampleCertificate()
	cert.IsValid = false
	s.stub.revoke = func(_ context.Context, certID id.CertificateID, reason string) (*models.Certificate, error) {
		s.Equal(cert.ID, certID)
		s.Equal("issued to the wrong attendee", reason)
		return cert, nil
	}

	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/certificates/"+cert.ID.String()+"/revoke",
		map[string]string{"reason": "issued to the wrong attendee"})
	rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, s.admin))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "is_valid", false)
}

func (s *CertificateHandlerSuite) TestRevokeRequiresReason() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/certificates/"+uuid.NewString()+"/revoke",
		map[string]string{"reason": "   "})
	rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, s.admin))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}

func (s *CertificateHandlerSuite) TestGetNotFound() {
	s.stub.get = func(context.Context, id.CertificateID) (*models.Certificate, error) {
		return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}

	req := testutil.NewRequest(s.T(), http.MethodGet, "/certificates/"+uuid.NewString())
	rr := testutil.DoRequest(s.router, testutil.WithUser(req, s.member))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}
