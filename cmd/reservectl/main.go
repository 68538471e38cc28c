// reservectl talks to the reserve catalogue API: it creates reserves with
// their images, attaches images, lists reserves and regions, and posts reviews.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"reserve_catalog/internal/adapters/identity"
	"reserve_catalog/internal/adapters/observability"
	"reserve_catalog/internal/client"
	"reserve_catalog/internal/domain"
)

type globals struct {
	api     string
	token   string
	timeout time.Duration
}

func (g *globals) client() *client.Client {
	return client.New(g.api, g.token, &http.Client{Timeout: g.timeout})
}

func main() {
	log.Logger = observability.NewLogger(os.Getenv("APP_ENV"), "reservectl", os.Getenv("LOG_LEVEL"))
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "reservectl",
		Short:         "Command-line client for the reserve catalogue",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.api, "api", envOr("RESERVES_API", "http://localhost:8080"), "API base URL (or set RESERVES_API)")
	root.PersistentFlags().StringVar(&g.token, "token", os.Getenv("RESERVES_TOKEN"), "Bearer token (or set RESERVES_TOKEN)")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 60*time.Second, "Per-request timeout")

	root.AddCommand(
		newTokenCmd(),
		newCreateCmd(g),
		newAttachCmd(g),
		newListCmd(g),
		newRegionsCmd(g),
		newReviewCmd(g),
	)
	return root
}

// newTokenCmd mints a development token with the shared signing secret.
func newTokenCmd() *cobra.Command {
	var (
		secret, issuer, sub, name string
		ttl                       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := identity.NewVerifier(secret, issuer)
			if err != nil {
				return err
			}
			tok, err := v.Issue(domain.Identity{Subject: sub, Name: name}, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret (or set JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", os.Getenv("JWT_ISSUER"), "Token issuer")
	cmd.Flags().StringVar(&sub, "sub", "dev-user", "Subject (user id)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func newCreateCmd(g *globals) *cobra.Command {
	var (
		file   string
		image  string
		extras []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a reserve from a JSON file, uploading its images first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var in domain.ReserveInput
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			var mainImg *client.Image
			if image != "" {
				img, err := readImage(image)
				if err != nil {
					return err
				}
				mainImg = &img
			}
			more := make([]client.Image, 0, len(extras))
			for _, p := range extras {
				img, err := readImage(p)
				if err != nil {
					return err
				}
				more = append(more, img)
			}

			id, err := g.client().CreateReserveWithImages(cmd.Context(), in, mainImg, more)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"id": id})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Reserve JSON file")
	cmd.Flags().StringVar(&image, "image", "", "Main image file")
	cmd.Flags().StringSliceVar(&extras, "extra", nil, "Additional image files (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newAttachCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <reserve-id> <image>",
		Short: "Upload an image and make it the reserve's main image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := readImage(args[1])
			if err != nil {
				return err
			}
			ref, err := g.client().AttachMainImage(cmd.Context(), args[0], img)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"blobRef": ref})
		},
	}
}

func newListCmd(g *globals) *cobra.Command {
	var q, region, sortBy string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reserves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := domain.ParseSort(sortBy)
			if err != nil {
				return err
			}
			out, err := g.client().ListReserves(cmd.Context(), domain.ReserveFilter{Query: q, Region: region, Sort: s})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&q, "query", "q", "", "Name substring")
	cmd.Flags().StringVar(&region, "region", "", "Region (all for any)")
	cmd.Flags().StringVar(&sortBy, "sort", "name", "name or dateAdded")
	return cmd
}

func newRegionsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the distinct regions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := g.client().Regions(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newReviewCmd(g *globals) *cobra.Command {
	var (
		rating int
		text   string
	)
	cmd := &cobra.Command{
		Use:   "review <reserve-id>",
		Short: "Post a review, or list reviews when --rating is not given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := g.client()
			if rating == 0 {
				out, err := c.Reviews(cmd.Context(), args[0], 0)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			id, err := c.CreateReview(cmd.Context(), args[0], domain.ReviewInput{Rating: rating, Text: text})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"id": id})
		},
	}
	cmd.Flags().IntVar(&rating, "rating", 0, "Rating 1-5")
	cmd.Flags().StringVar(&text, "text", "", "Review text")
	return cmd
}

func readImage(path string) (client.Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return client.Image{}, err
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = http.DetectContentType(b)
	}
	return client.Image{Name: filepath.Base(path), ContentType: ct, Data: b}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
