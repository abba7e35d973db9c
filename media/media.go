// Package media stores post images and profile pictures.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	PostsFolder    = "threads/posts"
	ProfilesFolder = "threads/profiles"
)

type Uploader interface {
	// Upload takes a data URI or remote URL and returns the hosted URL.
	Upload(ctx context.Context, file, folder string) (string, error)
	// Delete removes a previously uploaded image by its hosted URL.
	Delete(ctx context.Context, hostedURL string) error
}

type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cloudinaryURL string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary configuration error: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file, folder string) (string, error) {
	res, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         folder,
		Transformation: "c_limit,w_1080,h_1080,q_auto",
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if res.Error.Message != "" {
		return "", errors.New(res.Error.Message)
	}
	return res.SecureURL, nil
}

func (c *Cloudinary) Delete(ctx context.Context, hostedURL string) error {
	publicID, ok := PublicID(hostedURL)
	if !ok {
		return nil
	}
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("delete image %s: %w", publicID, err)
	}
	if res.Error.Message != "" {
		return errors.New(res.Error.Message)
	}
	return nil
}

// PublicID extracts the Cloudinary public id ("folder/name") from a delivery URL.
func PublicID(hostedURL string) (string, bool) {
	u, err := url.Parse(hostedURL)
	if err != nil {
		return "", false
	}
	_, rest, found := strings.Cut(u.Path, "/upload/")
	if !found || rest == "" {
		return "", false
	}
	parts := strings.Split(rest, "/")
	// drop transformation and version segments
	for len(parts) > 1 && (isTransformation(parts[0]) || isVersion(parts[0])) {
		parts = parts[1:]
	}
	id := strings.Join(parts, "/")
	id = strings.TrimSuffix(id, path.Ext(id))
	return id, id != ""
}

func isVersion(seg string) bool {
	if len(seg) < 2 || seg[0] != 'v' {
		return false
	}
	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isTransformation(seg string) bool {
	if strings.Contains(seg, ",") {
		return true
	}
	prefixes := []string{"c_", "w_", "h_", "q_", "f_", "e_", "g_", "r_"}
	for _, p := range prefixes {
		if strings.HasPrefix(seg, p) {
			return true
		}
	}
	return false
}

// Passthrough keeps image values as given. It is used when Cloudinary is not configured.
type Passthrough struct{}

func (Passthrough) Upload(_ context.Context, file, _ string) (string, error) {
	return file, nil
}

func (Passthrough) Delete(context.Context, string) error { return nil }
