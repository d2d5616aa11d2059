// Package admin implements operator tooling that talks to the store
// directly rather than through the public API.
package admin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/netx"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/dmitrijs2005/socialnet/internal/server/services"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

type Registrar interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
}

type AvatarUploader interface {
	Create(ctx context.Context, ownerID string, req services.UploadRequest) (*services.UploadTicket, error)
	Complete(ctx context.Context, ownerID, id string) error
}

// Options are the values given on the command line; empty ones are
// prompted for.
type Options struct {
	Username    string
	Email       string
	DisplayName string
	AvatarPath  string
}

type UserAdd struct {
	Users   Registrar
	Uploads AvatarUploader
	In      *bufio.Reader
	Out     io.Writer
	// HTTPClient performs the avatar PUT; nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Run creates the account and, when an avatar path is given, pushes the
// file to object storage through a presigned URL.
func (u *UserAdd) Run(ctx context.Context, opts Options) (*models.User, error) {
	var err error
	if opts.Username == "" {
		if opts.Username, err = GetSimpleText(u.In, "Username", u.Out); err != nil {
			return nil, err
		}
	}
	if opts.Email == "" {
		if opts.Email, err = GetSimpleText(u.In, "Email", u.Out); err != nil {
			return nil, err
		}
	}

	password, err := u.readNewPassword()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(password)

	user, err := u.Users.Register(ctx, services.RegisterRequest{
		Username:    opts.Username,
		Email:       opts.Email,
		Password:    string(password),
		DisplayName: opts.DisplayName,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	fmt.Fprintf(u.Out, "created user %s (%s)\n", user.Username, user.ID)

	if opts.AvatarPath != "" {
		if err := u.uploadAvatar(ctx, user.ID, opts.AvatarPath); err != nil {
			return user, fmt.Errorf("avatar: %w", err)
		}
	}
	return user, nil
}

func (u *UserAdd) readNewPassword() ([]byte, error) {
	pw, err := GetPassword(u.Out, "Password")
	if err != nil {
		return nil, err
	}
	again, err := GetPassword(u.Out, "Repeat password")
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(again)

	if !bytes.Equal(pw, again) {
		common.WipeByteArray(pw)
		return nil, ErrPasswordMismatch
	}
	return pw, nil
}

func (u *UserAdd) uploadAvatar(ctx context.Context, ownerID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	contentType := http.DetectContentType(data)

	ticket, err := u.Uploads.Create(ctx, ownerID, services.UploadRequest{
		Name:        filepath.Base(path),
		Kind:        string(models.UploadKindImage),
		Size:        int64(len(data)),
		ContentType: contentType,
	})
	if err != nil {
		return err
	}

	if err := netx.UploadToPresignedURL(ctx, u.HTTPClient, ticket.UploadURL, contentType, data); err != nil {
		return err
	}

	if err := u.Uploads.Complete(ctx, ownerID, ticket.Upload.ID); err != nil {
		return err
	}
	fmt.Fprintf(u.Out, "uploaded avatar %s\n", ticket.Upload.ID)
	return nil
}
