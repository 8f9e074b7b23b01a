package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storageStateFixture = `{
	"cookies": [
		{"name": "SESSDATA", "value": "sess-value", "domain": ".bilibili.com", "path": "/", "expires": 1893456000, "httpOnly": true, "secure": true},
		{"name": "bili_jct", "value": "jct-value", "domain": ".bilibili.com", "path": "/"},
		{"name": "buvid3", "value": "buvid3-value", "domain": ".bilibili.com", "path": "/"},
		{"name": "DedeUserID", "value": "12345", "domain": ".bilibili.com", "path": "/"},
		{"name": "unrelated", "value": "other-site", "domain": ".example.com", "path": "/"}
	],
	"origins": [
		{"origin": "https://www.bilibili.com", "localStorage": [
			{"name": "ac_time_value", "value": "refresh-token"},
			{"name": "noise", "value": "ignored"}
		]},
		{"origin": "https://other.example.com", "localStorage": [
			{"name": "ac_time_value", "value": "wrong-origin"}
		]}
	]
}`

func writeStorageState(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(storageStateFixture), 0o644))
	return path
}

func TestLoadStorageState(t *testing.T) {
	state, err := LoadStorageState(writeStorageState(t))
	require.NoError(t, err)

	assert.Len(t, state.Cookies, 5)
	require.Len(t, state.Origins, 2)
	assert.Equal(t, "https://www.bilibili.com", state.Origins[0].Origin)
}

func TestLoadStorageStateErrors(t *testing.T) {
	_, err := LoadStorageState(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadStorageState(bad)
	assert.Error(t, err)
}

func TestStorageStateCredential(t *testing.T) {
	state, err := LoadStorageState(writeStorageState(t))
	require.NoError(t, err)

	cred := state.Credential()
	assert.Equal(t, "sess-value", cred.Sessdata)
	assert.Equal(t, "jct-value", cred.BiliJct)
	assert.Equal(t, "buvid3-value", cred.Buvid3)
	assert.Equal(t, "", cred.Buvid4, "absent cookie stays empty")
	assert.Equal(t, "12345", cred.DedeUserID)
	assert.Equal(t, "refresh-token", cred.AcTimeValue, "token comes from the site origin only")
}

func TestCredentialCookiesSkipEmpty(t *testing.T) {
	cred := Credential{Sessdata: "s", DedeUserID: "1"}

	cookies := cred.Cookies()
	require.Len(t, cookies, 2)

	names := []string{cookies[0].Name, cookies[1].Name}
	assert.Equal(t, []string{"SESSDATA", "DedeUserID"}, names)
	for _, c := range cookies {
		assert.Equal(t, ".bilibili.com", c.Domain)
		assert.Equal(t, "/", c.Path)
	}
}

func TestStorageStateCookieParams(t *testing.T) {
	state, err := LoadStorageState(writeStorageState(t))
	require.NoError(t, err)

	params := state.CookieParams()
	require.Len(t, params, 5)
	assert.Equal(t, "SESSDATA", params[0].Name)
	assert.Equal(t, "sess-value", params[0].Value)
	assert.True(t, params[0].HTTPOnly)
	assert.True(t, params[0].Secure)
}

func TestLocalStorageUnknownOrigin(t *testing.T) {
	state, err := LoadStorageState(writeStorageState(t))
	require.NoError(t, err)
	assert.Nil(t, state.LocalStorage("https://nope.example.com"))
}
