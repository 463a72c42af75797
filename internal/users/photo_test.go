package users

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func servePhoto(t *testing.T, width, height int) *httptest.Server {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".jpg") {
			w.Write(buf.Bytes())
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUploadPhotoStoresCrop(t *testing.T) {
	svc, st := newTestService(t)
	alice := seedUser(t, st, "alice", true)
	srv := servePhoto(t, 100, 80)

	require.NoError(t, svc.UploadPhoto(alice, srv.URL+"/avatar.jpg", 10, 10, 60, 40))

	u, err := svc.Profile(alice)
	require.NoError(t, err)
	require.NotEmpty(t, u.ProfileImgURL)
	assert.True(t, strings.HasPrefix(u.ProfileImgURL, "http://localhost:8082/imgurl/"))
	assert.True(t, strings.HasSuffix(u.ProfileImgURL, ".jpg"))

	name := u.ProfileImgURL[strings.LastIndex(u.ProfileImgURL, "/")+1:]
	f, err := os.Open(svc.photoDir + "/" + name)
	require.NoError(t, err)
	defer f.Close()

	saved, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 50, saved.Bounds().Dx())
	assert.Equal(t, 30, saved.Bounds().Dy())
}

func TestUploadPhotoNoCrop(t *testing.T) {
	svc, st := newTestService(t)
	alice := seedUser(t, st, "alice", true)
	srv := servePhoto(t, 40, 30)

	require.NoError(t, svc.UploadPhoto(alice, srv.URL+"/avatar.jpg", 0, 0, 0, 0))

	u, err := svc.Profile(alice)
	require.NoError(t, err)
	name := u.ProfileImgURL[strings.LastIndex(u.ProfileImgURL, "/")+1:]
	f, err := os.Open(svc.photoDir + "/" + name)
	require.NoError(t, err)
	defer f.Close()

	saved, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 40, saved.Bounds().Dx())
	assert.Equal(t, 30, saved.Bounds().Dy())
}

func TestUploadPhotoCropBeyondBounds(t *testing.T) {
	svc, st := newTestService(t)
	alice := seedUser(t, st, "alice", true)
	srv := servePhoto(t, 40, 30)

	err := svc.UploadPhoto(alice, srv.URL+"/avatar.jpg", 0, 0, 41, 30)
	require.Error(t, err)
	err = svc.UploadPhoto(alice, srv.URL+"/avatar.jpg", 0, 0, 40, 31)
	require.Error(t, err)
}

func TestUploadPhotoFetchFailure(t *testing.T) {
	svc, st := newTestService(t)
	alice := seedUser(t, st, "alice", true)
	srv := servePhoto(t, 40, 30)

	err := svc.UploadPhoto(alice, srv.URL+"/missing/other.jpeg", 0, 0, 0, 0)
	require.Error(t, err)
}
