package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"agenda/internal/config"
	"agenda/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Header is the first row of the mirror sheet.
var Header = []interface{}{"Nº", "Data", "Horário", "Profissional", "Serviço", "Cliente", "E-mail", "Observações", "Criado em"}

// SheetsService appends appointments to one sheet of a spreadsheet.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string

	// rowCache maps appointment ID to its 1-based row.
	rowCache map[int64]int
	cacheMu  sync.RWMutex
	warmed   bool
}

func NewSheetsService(ctx context.Context, cfg config.GoogleConfig) (*SheetsService, error) {
	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return newSheetsService(srv, cfg.SpreadsheetID, cfg.SheetName), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID, sheetName string) *SheetsService {
	if sheetName == "" {
		sheetName = "Agendamentos"
	}
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rowCache:      make(map[int64]int),
	}
}

func (s *SheetsService) cell(ref string) string {
	return fmt.Sprintf("%s!%s", s.sheetName, ref)
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	if _, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.cell("A1")).Context(ctx).Do(); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// EnsureHeader writes the header row when the sheet is empty.
func (s *SheetsService) EnsureHeader(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.cell("A1:I1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.cell("A1:I1"), &sheets.ValueRange{
		Values: [][]interface{}{Header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// WarmUpCache loads the appointment IDs already present in column A.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.cell("A:A")).Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id := cellID(row[0]); id > 0 {
			s.rowCache[id] = i + 1
		}
	}
	s.warmed = true
	return nil
}

func cellID(v interface{}) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case string:
		id, _ := strconv.ParseInt(x, 10, 64)
		return id
	case json.Number:
		id, _ := x.Int64()
		return id
	}
	return 0
}

// AppendAppointment adds the task's row. A retried task whose row already
// landed is skipped.
func (s *SheetsService) AppendAppointment(ctx context.Context, task *models.MirrorTask) error {
	if task == nil || task.AppointmentID == 0 {
		return errors.New("appointment id is required")
	}

	s.cacheMu.RLock()
	warmed := s.warmed
	s.cacheMu.RUnlock()
	if !warmed || task.RetryCount > 0 {
		if err := s.WarmUpCache(ctx); err != nil {
			return fmt.Errorf("load existing rows: %w", err)
		}
	}
	if _, ok := s.getCachedRow(task.AppointmentID); ok {
		return nil
	}

	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.cell("A:I"), &sheets.ValueRange{
		Values: [][]interface{}{task.Row()},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	if resp.Updates != nil {
		if row := rowFromRange(resp.Updates.UpdatedRange); row > 0 {
			s.setCachedRow(task.AppointmentID, row)
		}
	}
	return nil
}

// rowFromRange extracts the first row number of a range like "Sheet!A10:I10".
func rowFromRange(r string) int {
	if i := strings.LastIndex(r, "!"); i >= 0 {
		r = r[i+1:]
	}
	if i := strings.Index(r, ":"); i >= 0 {
		r = r[:i]
	}
	n, err := strconv.Atoi(strings.TrimLeft(r, "$ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	if err != nil {
		return 0
	}
	return n
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ServiceAccountEmail returns the client_email of a credentials file, the
// address the spreadsheet must be shared with.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}
