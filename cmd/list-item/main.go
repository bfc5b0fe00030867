package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/simple-mercari/listing/internal/config"
	"github.com/simple-mercari/listing/internal/listing"
	"github.com/simple-mercari/listing/internal/mercari"
)

func main() {
	name := flag.String("name", "", "Item name")
	category := flag.String("category", "", "Item category")
	imagePath := flag.String("image", "", "Path to the item image")
	list := flag.Bool("list", false, "List all items instead of submitting")
	search := flag.String("search", "", "Search items by keyword instead of submitting")
	get := flag.String("get", "", "Show one item by id instead of submitting")
	origin := flag.String("origin", "", "Origin header to send (e.g. http://localhost:3000)")
	interactive := flag.Bool("i", false, "Fill in the listing interactively")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()
	cfg := config.Load()

	values := promptValues{name: *name, category: *category, imagePath: *imagePath}
	if *interactive && !*list && *search == "" && *get == "" {
		if !config.IsInteractiveTerminal() {
			fmt.Fprintln(os.Stderr, "Error: -i needs an interactive terminal")
			os.Exit(1)
		}
		if err := promptListing(&values); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Println("Cancelled.")
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	client := mercari.NewClient(mercari.ClientOpts{BaseURL: cfg.ServerOrigin, Origin: *origin})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *list || *search != "" || *get != "" {
		var result any
		var err error
		switch {
		case *list:
			result, err = client.ListItems(ctx)
		case *search != "":
			result, err = client.SearchItems(ctx, *search)
		default:
			result, err = client.GetItem(ctx, *get)
		}
		if err == nil {
			err = printJSON(os.Stdout, result)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	form := listing.NewForm(client)
	form.Change(listing.FieldName, values.name)
	form.Change(listing.FieldCategory, values.category)

	if values.imagePath != "" {
		img, err := readImage(values.imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		form.SelectImage([]listing.Image{img})
	}

	// The outcome is reported by the form's log only.
	log.Debug().Str("itemsURL", cfg.ItemsURL()).Msg("submitting listing")
	form.Submit(ctx)
}

func readImage(path string) (listing.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return listing.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return listing.Image{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
