package source

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-job-digest/internal/config"
)

const alertEmail = "From: =?UTF-8?B?MTA05Lq65Yqb6YqA6KGM?= <alert@104.com.tw>\r\n" +
	"To: me@example.com\r\n" +
	"Subject: =?UTF-8?B?MTA06IG357y66YCa55+l77ya55Si5ZOB57aT55CG?=\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"Content-Transfer-Encoding: 8bit\r\n" +
	"\r\n" +
	"新職缺 https://www.104.com.tw/job/8abcd?jobsource=mail).\r\n" +
	"另一個 https://www.104.com.tw/job/9zzzz, 查看\r\n" +
	"取消訂閱 https://www.104.com.tw/unsubscribe\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"<html><body>\r\n" +
	"<a href=3D\"https://www.104.com.tw/job/8abcd?jobsource=mail\">  =E7=94=A2=E5=93=81=E7=B6=93=E7=90=86  </a>\r\n" +
	"<a href=3D\"https://www.104.com.tw/job/7empty\"></a>\r\n" +
	"<a href=3D\"/job/relative\">relative</a>\r\n" +
	"<a href=3D\"https://www.104.com.tw/company/1\">company</a>\r\n" +
	"</body></html>\r\n" +
	"--b1--\r\n"

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage([]byte(alertEmail))
	require.NoError(t, err)

	assert.Equal(t, "104職缺通知：產品經理", msg.Subject)
	assert.Contains(t, msg.From, "alert@104.com.tw")
	assert.Contains(t, msg.Plain, "https://www.104.com.tw/job/9zzzz")
	assert.Contains(t, msg.HTML, "產品經理")
}

func TestParseMessage_SinglePart(t *testing.T) {
	raw := "From: jobs@example.com\r\nSubject: hello\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nhttps://www.104.com.tw/job/1abc\r\n"
	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Subject)
	assert.Empty(t, msg.HTML)
	assert.Contains(t, msg.Plain, "104.com.tw/job/1abc")
}

func TestAlertMessage_Matches(t *testing.T) {
	m := AlertMessage{From: "104人力銀行 <alert@104.com.tw>", Subject: "職缺通知"}
	assert.True(t, m.Matches("104", ""))
	assert.True(t, m.Matches("", "職缺"))
	assert.True(t, m.Matches("ALERT@", "職缺通知"))
	assert.False(t, m.Matches("linkedin", ""))
	assert.False(t, m.Matches("104", "面試"))
}

func TestExtractJobs(t *testing.T) {
	msg, err := ParseMessage([]byte(alertEmail))
	require.NoError(t, err)

	jobs := ExtractJobs(msg)
	require.Len(t, jobs, 3)

	//anchors first: text becomes the title, subject the description
	assert.Equal(t, "產品經理", jobs[0]["title"])
	assert.Equal(t, "https://www.104.com.tw/job/8abcd?jobsource=mail", jobs[0]["url"])
	assert.Equal(t, msg.Subject, jobs[0]["description"])

	//an empty anchor falls back to the subject
	assert.Equal(t, msg.Subject, jobs[1]["title"])
	assert.Equal(t, "https://www.104.com.tw/job/7empty", jobs[1]["url"])

	//the plain copy of 8abcd is already taken; 9zzzz is trimmed of its comma
	assert.Equal(t, "https://www.104.com.tw/job/9zzzz", jobs[2]["url"])
	assert.Equal(t, msg.Subject, jobs[2]["title"])

	for _, j := range jobs {
		_, hasSalary := j["salary"]
		_, hasRemote := j["remote"]
		assert.False(t, hasSalary)
		assert.False(t, hasRemote)
	}
}

func TestExtractJobs_PlainSnippetIsCapped(t *testing.T) {
	body := strings.Repeat("字", 400) + " https://www.104.com.tw/job/abc"
	jobs := ExtractJobs(AlertMessage{Subject: "s", Plain: body})
	require.Len(t, jobs, 1)
	assert.Len(t, []rune(jobs[0]["description"].(string)), snippetRunes)
}

type fakeMail struct {
	raws  [][]byte
	since time.Time
	err   error
}

func (f *fakeMail) FetchSince(_ context.Context, since time.Time) ([][]byte, error) {
	f.since = since
	return f.raws, f.err
}

func imapConfig() config.IMAPConfig {
	cfg := config.Defaults().IMAP
	cfg.Host, cfg.User, cfg.Password = "imap.example.com", "me", "pw"
	return cfg
}

func TestIMAP_FetchFiltersAndExtracts(t *testing.T) {
	other := "From: news@example.com\r\nSubject: newsletter\r\nContent-Type: text/plain\r\n\r\nhttps://www.104.com.tw/job/zzz\r\n"
	fm := &fakeMail{raws: [][]byte{[]byte(alertEmail), []byte(other)}}

	s, err := NewIMAP(imapConfig(), fm, nil)
	require.NoError(t, err)
	now := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	jobs, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
	assert.Equal(t, now.AddDate(0, 0, -1), fm.since)
}

func TestIMAP_FetchError(t *testing.T) {
	s, err := NewIMAP(imapConfig(), &fakeMail{err: errors.New("login failed")}, nil)
	require.NoError(t, err)
	_, err = s.Fetch(context.Background())
	assert.EqualError(t, err, "login failed")
}

func TestIMAP_RequiresCredentials(t *testing.T) {
	cfg := imapConfig()
	cfg.Password = ""
	_, err := NewIMAP(cfg, nil, nil)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
