package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nexconsult/processo-api/internal/models"
	"github.com/nexconsult/processo-api/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const (
	testCaseNumber = "00026885420248160136"
	rightAnswer    = "x7k2p"
	captchaFailure = `<html><body><div class="erro">Captcha inválido</div></body></html>`
)

// fakeDriver answers with resultPage when the answer is right and with the
// captcha failure page otherwise.
type fakeDriver struct {
	startErr  error
	submitErr error
	html      string
	page      *ResultPage
	delay     time.Duration

	starts  atomic.Int32
	submits atomic.Int32
}

func (d *fakeDriver) StartCaptchaFlow(ctx context.Context, caseNumber utils.CaseNumber) (*CaptchaChallenge, error) {
	d.starts.Add(1)
	if d.startErr != nil {
		return nil, d.startErr
	}
	return &CaptchaChallenge{
		Cookies: []Cookie{{Name: "JSESSIONID", Value: "cookie-" + caseNumber.Digits()}},
		Image:   []byte{0x89, 'P', 'N', 'G'},
	}, nil
}

func (d *fakeDriver) SubmitCaptcha(ctx context.Context, cookies []Cookie, caseNumber utils.CaseNumber, answer string) (*ResultPage, error) {
	d.submits.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.submitErr != nil {
		return nil, d.submitErr
	}
	if answer != rightAnswer {
		return utf8Page(captchaFailure), nil
	}
	if d.page != nil {
		return d.page, nil
	}
	if d.html != "" {
		return utf8Page(d.html), nil
	}
	return utf8Page(resultPage(varaRow, 3)), nil
}

func utf8Page(html string) *ResultPage {
	return &ResultPage{Body: []byte(html), ContentType: "text/html; charset=utf-8"}
}

func (d *fakeDriver) GetStats() map[string]interface{} { return map[string]interface{}{} }
func (d *fakeDriver) Health() map[string]interface{} { return map[string]interface{}{"status": "healthy"} }
func (d *fakeDriver) Close() error { return nil }

type consultaFixture struct {
	clock    *fakeClock
	driver   *fakeDriver
	sessions *SessionStore
	quota    *QuotaTracker
	service  *ConsultaService
}

func newConsultaFixture() *consultaFixture {
	clock := newFakeClock()
	logger := newTestLogger()
	driver := &fakeDriver{}
	quota := NewQuotaTracker(testQuotaConfig(), logger, clock.Now)
	sessions := NewSessionStore(nil, testSessionConfig(), logger, clock.Now)
	extractor := NewExtractorService(logger, clock.Now)

	return &consultaFixture{
		clock:    clock,
		driver:   driver,
		sessions: sessions,
		quota:    quota,
		service:  NewConsultaService(quota, sessions, driver, extractor, logger, clock.Now),
	}
}

func TestConsultaService_WrongCaptchaThenSessionExpired(t *testing.T) {
	f := newConsultaFixture()
	ctx := context.Background()

	started, err := f.service.IniciarConsulta(ctx, testCaseNumber, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, started.SessionID)
	assert.True(t, strings.HasPrefix(started.CaptchaImage, "data:image/png;base64,"))
	assert.Greater(t, len(started.CaptchaImage), len("data:image/png;base64,"))
	assert.Equal(t, "0002688-54.2024.8.16.0136", started.CaseNumber)
	assert.True(t, started.CheckDigitsValid)

	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, "wrong", "u1")
	assert.ErrorIs(t, err, ErrCaptchaRejected)

	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "u1")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), f.driver.submits.Load())
}

func TestConsultaService_Success(t *testing.T) {
	f := newConsultaFixture()
	ctx := context.Background()

	started, err := f.service.IniciarConsulta(ctx, "0002688-54.2024.8.16.0136", "u1")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), started.ExpiresAt)

	result, err := f.service.ConsultarComCaptcha(ctx, started.SessionID, " "+rightAnswer+" ", "u1")
	require.NoError(t, err)

	assert.Equal(t, "0002688-54.2024.8.16.0136", result.CaseNumber)
	assert.Equal(t, models.StatusInProgress, result.Status)
	require.NotNil(t, result.ClaimValue)
	assert.InDelta(t, 1234.56, *result.ClaimValue, 1e-9)
	require.Len(t, result.Parties, 2)
	assert.Equal(t, models.RolePlaintiff, result.Parties[0].Role)
	assert.Equal(t, models.RoleDefendant, result.Parties[1].Role)
	assert.Len(t, result.Movements, 3)

	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "u1")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 0, f.sessions.Len(ctx))

	stats := f.service.GetStats()
	assert.Equal(t, int64(1), stats.Started)
	assert.Equal(t, int64(1), stats.Resolved)
	assert.InDelta(t, 100.0, stats.SuccessRate, 1e-9)
}

func TestConsultaService_InvalidFormatSkipsQuotaAndBrowser(t *testing.T) {
	f := newConsultaFixture()

	_, err := f.service.IniciarConsulta(context.Background(), "0002688-54.2024", "u1")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.ErrorIs(t, err, utils.ErrInvalidCaseNumber)

	assert.Equal(t, int32(0), f.driver.starts.Load())
	assert.Equal(t, 0, f.quota.Info("u1", f.clock.Now()).UsedToday)
}

func TestConsultaService_TooSoonSkipsBrowser(t *testing.T) {
	f := newConsultaFixture()
	ctx := context.Background()

	_, err := f.service.IniciarConsulta(ctx, testCaseNumber, "u1")
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.service.IniciarConsulta(ctx, testCaseNumber, "u1")

	var tooSoon *TooSoonError
	require.ErrorAs(t, err, &tooSoon)
	assert.Equal(t, 2, tooSoon.Seconds)
	assert.Equal(t, int32(1), f.driver.starts.Load())
	assert.Equal(t, int64(1), f.service.GetStats().QuotaRejected)
}

func TestConsultaService_PortalUnreachableOnStart(t *testing.T) {
	f := newConsultaFixture()
	f.driver.startErr = errors.Join(ErrPortalUnreachable, context.DeadlineExceeded)

	_, err := f.service.IniciarConsulta(context.Background(), testCaseNumber, "u1")
	assert.ErrorIs(t, err, ErrPortalUnreachable)
	assert.Equal(t, 0, f.sessions.Len(context.Background()))
	assert.Equal(t, int64(1), f.service.GetStats().PortalErrors)
}

func TestConsultaService_PortalUnreachableOnSubmitConsumesSession(t *testing.T) {
	f := newConsultaFixture()
	ctx := context.Background()

	started, err := f.service.IniciarConsulta(ctx, testCaseNumber, "u1")
	require.NoError(t, err)

	f.driver.submitErr = ErrPortalUnreachable
	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "u1")
	assert.ErrorIs(t, err, ErrPortalUnreachable)

	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "u1")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestConsultaService_CaseNotFound(t *testing.T) {
	f := newConsultaFixture()
	f.driver.html = `<html><body>Processo não encontrado</body></html>`
	ctx := context.Background()

	started, err := f.service.IniciarConsulta(ctx, testCaseNumber, "u1")
	require.NoError(t, err)

	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "u1")
	assert.ErrorIs(t, err, ErrCaseNotFound)
	assert.Equal(t, int64(1), f.service.GetStats().CaseNotFound)

	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "u1")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestConsultaService_ExpiredSession(t *testing.T) {
	f := newConsultaFixture()
	ctx := context.Background()

	started, err := f.service.IniciarConsulta(ctx, testCaseNumber, "u1")
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)
	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "u1")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(0), f.driver.submits.Load())
}

func TestConsultaService_UnknownSession(t *testing.T) {
	f := newConsultaFixture()

	_, err := f.service.ConsultarComCaptcha(context.Background(), "does-not-exist", rightAnswer, "u1")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestConsultaService_OtherUserCannotResolve(t *testing.T) {
	f := newConsultaFixture()
	ctx := context.Background()

	started, err := f.service.IniciarConsulta(ctx, testCaseNumber, "u1")
	require.NoError(t, err)

	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "intruder")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(0), f.driver.submits.Load())

	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "u1")
	assert.NoError(t, err)
}

func TestConsultaService_EmptyAnswerConsumesSession(t *testing.T) {
	f := newConsultaFixture()
	ctx := context.Background()

	started, err := f.service.IniciarConsulta(ctx, testCaseNumber, "u1")
	require.NoError(t, err)

	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, "   ", "u1")
	assert.ErrorIs(t, err, ErrCaptchaRejected)
	assert.Equal(t, int32(0), f.driver.submits.Load())

	_, err = f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "u1")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestConsultaService_ConcurrentResolveSameSession(t *testing.T) {
	f := newConsultaFixture()
	f.driver.delay = 20 * time.Millisecond
	ctx := context.Background()

	started, err := f.service.IniciarConsulta(ctx, testCaseNumber, "u1")
	require.NoError(t, err)

	var ok, expired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "u1")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrSessionExpired):
				expired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(9), expired.Load())
	assert.Equal(t, int32(1), f.driver.submits.Load())
}

func TestConsultaService_QuotaAdmin(t *testing.T) {
	f := newConsultaFixture()

	_, err := f.service.IniciarConsulta(context.Background(), testCaseNumber, "u1")
	require.NoError(t, err)

	info := f.service.QuotaInfo("u1")
	assert.Equal(t, 99, info.Remaining)
	assert.Equal(t, 1, info.UsedToday)
	assert.Equal(t, 3, info.SecondsUntilNext)

	f.service.ResetQuota("u1")
	info = f.service.QuotaInfo("u1")
	assert.Equal(t, 100, info.Remaining)
	assert.Equal(t, 0, info.SecondsUntilNext)
}

func TestConsultaService_DecodesLatin1ResultPage(t *testing.T) {
	f := newConsultaFixture()
	ctx := context.Background()

	encoded, err := charmap.ISO8859_1.NewEncoder().String(resultPage(varaRow, 2))
	require.NoError(t, err)
	f.driver.page = &ResultPage{Body: []byte(encoded), ContentType: "text/html;charset=ISO-8859-1"}

	started, err := f.service.IniciarConsulta(ctx, testCaseNumber, "u1")
	require.NoError(t, err)

	result, err := f.service.ConsultarComCaptcha(ctx, started.SessionID, rightAnswer, "u1")
	require.NoError(t, err)

	require.NotNil(t, result.Subject)
	assert.Equal(t, "Indenização por Dano Moral", *result.Subject)
	require.NotNil(t, result.Vara)
	assert.Equal(t, "1ª Vara Cível", *result.Vara)
}
