package users

import (
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/apperr"
	"github.com/unsw-memes/memes/internal/store"
)

// subImager is satisfied by every image type the jpeg decoder produces.
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// UploadPhoto fetches a JPEG from imgURL, crops it to the given rectangle
// and stores the result as the caller's profile photo. An all-zero
// rectangle keeps the full image.
func (s *Service) UploadPhoto(uid int64, imgURL string, xStart, yStart, xEnd, yEnd int) error {
	if xStart < 0 || yStart < 0 || xEnd < 0 || yEnd < 0 {
		return apperr.Input("crop bounds cannot be negative")
	}
	if xStart > xEnd || yStart > yEnd {
		return apperr.Input("crop start must not exceed crop end")
	}
	lower := strings.ToLower(imgURL)
	if !strings.HasSuffix(lower, ".jpg") && !strings.HasSuffix(lower, ".jpeg") {
		return apperr.Input("image must be a jpg")
	}

	resp, err := s.client.Get(imgURL)
	if err != nil {
		return apperr.Input("could not fetch image")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.Input("could not fetch image")
	}

	img, err := jpeg.Decode(resp.Body)
	if err != nil {
		return apperr.Input("image is not a valid jpg")
	}

	bounds := img.Bounds()
	if xEnd > bounds.Dx() || yEnd > bounds.Dy() {
		return apperr.Input("crop bounds exceed the image dimensions")
	}

	crop := !(xStart == 0 && yStart == 0 && xEnd == 0 && yEnd == 0)
	if crop {
		sub, ok := img.(subImager)
		if !ok {
			return apperr.Input("image is not a valid jpg")
		}
		rect := image.Rect(
			bounds.Min.X+xStart, bounds.Min.Y+yStart,
			bounds.Min.X+xEnd, bounds.Min.Y+yEnd,
		)
		img = sub.SubImage(rect)
	}

	if err := os.MkdirAll(s.photoDir, 0o755); err != nil {
		return fmt.Errorf("create photo dir: %w", err)
	}
	name := uuid.NewString() + ".jpg"
	f, err := os.Create(filepath.Join(s.photoDir, name))
	if err != nil {
		return fmt.Errorf("create photo file: %w", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		return fmt.Errorf("encode photo: %w", err)
	}

	url := s.baseURL + "/imgurl/" + name
	err = s.st.Update(func(d *store.Data) error {
		u, ok := d.User(uid)
		if !ok {
			return apperr.Input("user does not exist")
		}
		u.ProfileImgURL = url
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("profile photo updated", zap.Int64("uid", uid))
	return nil
}
