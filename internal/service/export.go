package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/templui/fractional/internal/export"
	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/observability"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/secrets"
	"github.com/templui/fractional/internal/storage"
	"github.com/templui/fractional/internal/validation"
	"golang.org/x/oauth2"
)

var ErrSheetsNotConfigured = errors.New("google sheets export is not configured")

var spreadsheetIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{10,100}$`)

const (
	SinkSheets = "sheets"
	SinkCSV    = "csv"
)

type ExportRepos struct {
	Sheets        repository.SheetsRepository
	Goals         repository.MonthlyGoalsRepository
	Actuals       repository.DailyActualsRepository
	Opportunities repository.OpportunityRepository
}

type SheetsExport struct {
	SpreadsheetID string   `json:"spreadsheet_id"`
	Month         string   `json:"month"`
	Tables        []string `json:"tables"`
	UpdatedCells  int      `json:"updated_cells"`
}

type ExportService struct {
	repos         ExportRepos
	box           *secrets.Box
	oauthConfig   *oauth2.Config
	sheetsBaseURL string
	store         storage.Storage
	usageService  *UsageService
	now           func() time.Time
}

// NewExportService builds the export service. box and oauthConfig may be
// nil when Sheets is not configured, store may be nil when S3 is not.
func NewExportService(
	repos ExportRepos,
	box *secrets.Box,
	oauthConfig *oauth2.Config,
	sheetsBaseURL string,
	store storage.Storage,
	usageService *UsageService,
) *ExportService {
	return &ExportService{
		repos:         repos,
		box:           box,
		oauthConfig:   oauthConfig,
		sheetsBaseURL: sheetsBaseURL,
		store:         store,
		usageService:  usageService,
		now:           time.Now,
	}
}

func (s *ExportService) sheetsEnabled() bool {
	return s.box != nil && s.oauthConfig != nil
}

// ConnectSheets stores the target spreadsheet and the user's OAuth token,
// sealed to the user.
func (s *ExportService) ConnectSheets(ctx context.Context, userID, spreadsheetID string, tokenJSON []byte) (*model.SheetsConnection, error) {
	if !s.sheetsEnabled() {
		return nil, ErrSheetsNotConfigured
	}
	if !spreadsheetIDPattern.MatchString(spreadsheetID) {
		return nil, validation.Invalid("spreadsheet_id", "is not a valid spreadsheet id")
	}

	token, err := export.DecodeToken(tokenJSON)
	if err != nil {
		return nil, validation.Invalid("token", err.Error())
	}

	sealed, err := s.seal(userID, token)
	if err != nil {
		return nil, err
	}

	conn := &model.SheetsConnection{
		UserID:         userID,
		SpreadsheetID:  spreadsheetID,
		EncryptedToken: sealed,
	}
	err = s.repos.Sheets.Upsert(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to save sheets connection: %w", err)
	}

	slog.Info("sheets connected", "user_id", userID)
	return conn, nil
}

func (s *ExportService) SheetsConnection(ctx context.Context, userID string) (*model.SheetsConnection, error) {
	return s.repos.Sheets.ByUserID(ctx, userID)
}

func (s *ExportService) DisconnectSheets(ctx context.Context, userID string) error {
	return s.repos.Sheets.Delete(ctx, userID)
}

// ExportSheets writes month's snapshot to the connected spreadsheet. The
// token is decrypted only for this call; a refreshed token is sealed and
// stored again.
func (s *ExportService) ExportSheets(ctx context.Context, userID, month string) (result *SheetsExport, err error) {
	defer func() { observability.RecordExport(SinkSheets, err) }()

	if !s.sheetsEnabled() {
		return nil, ErrSheetsNotConfigured
	}

	conn, err := s.repos.Sheets.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	token, err := s.open(userID, conn.EncryptedToken)
	if err != nil {
		return nil, err
	}

	session := export.NewTokenSession(ctx, s.oauthConfig, token)
	client, err := export.NewSheetsClient(ctx, session.Client(ctx), s.sheetsBaseURL)
	if err != nil {
		return nil, err
	}

	cells, err := client.Write(ctx, conn.SpreadsheetID, snap)
	if err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}

	s.storeRefreshed(ctx, userID, session)
	s.usageService.Record(ctx, userID, model.FeatureExport)
	slog.Info("sheets export completed", "user_id", userID, "month", month, "cells", cells)

	return &SheetsExport{
		SpreadsheetID: conn.SpreadsheetID,
		Month:         month,
		Tables:        tableNames(snap),
		UpdatedCells:  cells,
	}, nil
}

// ExportCSV uploads month's snapshot as one CSV per table and returns
// time-limited download links.
func (s *ExportService) ExportCSV(ctx context.Context, userID, month string) (files []export.File, err error) {
	defer func() { observability.RecordExport(SinkCSV, err) }()

	if s.store == nil {
		return nil, storage.ErrNotConfigured
	}

	snap, err := s.snapshot(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	files, err = export.UploadCSV(ctx, s.store, "exports/"+userID, snap)
	if err != nil {
		return nil, fmt.Errorf("failed to upload csv: %w", err)
	}

	s.usageService.Record(ctx, userID, model.FeatureExport)
	slog.Info("csv export completed", "user_id", userID, "month", month, "files", len(files))
	return files, nil
}

func (s *ExportService) snapshot(ctx context.Context, userID, month string) (export.Snapshot, error) {
	if err := validation.ValidateMonth(month); err != nil {
		return export.Snapshot{}, err
	}

	goals, err := s.repos.Goals.ByMonth(ctx, userID, month)
	if errors.Is(err, repository.ErrGoalsNotFound) {
		goals = nil
	} else if err != nil {
		return export.Snapshot{}, fmt.Errorf("failed to get goals: %w", err)
	}

	actuals, err := s.repos.Actuals.ByMonth(ctx, userID, month)
	if err != nil {
		return export.Snapshot{}, fmt.Errorf("failed to get actuals: %w", err)
	}

	opps, err := s.repos.Opportunities.ByMonth(ctx, userID, month)
	if err != nil {
		return export.Snapshot{}, fmt.Errorf("failed to get opportunities: %w", err)
	}

	return export.Build(export.Inputs{
		Month:         month,
		AsOf:          s.now().UTC(),
		Goals:         goals,
		Actuals:       actuals,
		Opportunities: opps,
	})
}

func (s *ExportService) storeRefreshed(ctx context.Context, userID string, session *export.TokenSession) {
	token, changed, err := session.Refreshed()
	if err != nil || !changed {
		return
	}

	sealed, err := s.seal(userID, token)
	if err == nil {
		err = s.repos.Sheets.UpdateToken(ctx, userID, sealed)
	}
	if err != nil {
		slog.Warn("failed to store refreshed sheets token", "error", err, "user_id", userID)
		return
	}
	slog.Info("sheets token refreshed", "user_id", userID)
}

func (s *ExportService) seal(userID string, token *oauth2.Token) (string, error) {
	raw, err := export.EncodeToken(token)
	if err != nil {
		return "", err
	}
	sealed, err := s.box.Seal(raw, []byte(userID))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt token: %w", err)
	}
	return sealed, nil
}

func (s *ExportService) open(userID, sealed string) (*oauth2.Token, error) {
	raw, err := s.box.Open(sealed, []byte(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}
	return export.DecodeToken(raw)
}

func tableNames(snap export.Snapshot) []string {
	names := make([]string, 0, len(snap.Tables))
	for _, t := range snap.Tables {
		names = append(names, t.Name)
	}
	return names
}
