/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"cvcanvas/internal/api"
	"cvcanvas/internal/config"
	"cvcanvas/internal/crash"
	"cvcanvas/internal/cvpack"
	"cvcanvas/internal/document"
	"cvcanvas/internal/editor"
	"cvcanvas/internal/export"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/storage"
	"cvcanvas/internal/ui"
	"cvcanvas/internal/version"
)

func usage() {
	fmt.Println("CV Canvas - resume canvas editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cvcanvas version|-v|--version                 Show version")
	fmt.Println("  cvcanvas serve [addr]                         Run the CV HTTP/WebSocket server")
	fmt.Println("  cvcanvas new <file> [template]                Write a new canvas document (templates: " + strings.Join(editor.TemplateNames(), ", ") + ")")
	fmt.Println("  cvcanvas export <file> <out.pdf|png|svg> [ratio]")
	fmt.Println("                                                Render a canvas document")
	fmt.Println("  cvcanvas export <file> --preset web|print <dir>")
	fmt.Println("                                                Render a canvas document with an export preset")
	fmt.Println("  cvcanvas pack <file> <out.zip>                Bundle a canvas document with PDF, PNG and SVG renders")
	fmt.Println("  cvcanvas unpack <in.zip> <file> [renderDir]   Restore the canvas of a bundle (and its renders)")
	fmt.Println("  cvcanvas validate <file>                      Check a canvas payload in any accepted shape")
	fmt.Println("  cvcanvas ui [<file>]                          Launch desktop editor (build with -tags fyne)")
}

func die(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func needArgs(args []string, n int, msg string) {
	if len(args) < n {
		fmt.Println(msg)
		usage()
		os.Exit(2)
	}
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	rescue := &crash.Rescue{}
	defer crash.Recover(rescue)

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("CV Canvas")
			fmt.Println(version.String())
			return
		case "serve":
			cfg, secret, err := config.Load()
			if err != nil {
				l.Warn("config load failed, using defaults", slog.Any("err", err))
			}
			applog.Init(applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, AddSource: cfg.Logging.Source, File: cfg.Logging.File})
			l = applog.WithComponent("cli")
			addr := cfg.Server.Addr
			if len(args) >= 3 {
				addr = args[2]
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			dsn, err := storage.PostgresDSN(cfg.Storage.DSN, secret)
			if err != nil {
				die(l, "storage dsn", err)
			}
			store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.Path, dsn)
			if err != nil {
				die(l, "open storage failed", err)
			}
			defer store.Close()
			srv := api.New(store, cfg.Canvas,
				api.WithRescueDir(filepath.Dir(cfg.Storage.Path)),
				api.WithAllowOrigins(cfg.Server.AllowOrigins...))
			fmt.Println("Serving on", addr)
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				die(l, "server stopped", err)
			}
			return
		case "new":
			needArgs(args, 3, "new requires <file>")
			path, _ := filepath.Abs(args[2])
			cfg, _, _ := config.Load()
			sess := editor.New(cfg.Canvas)
			rescue.Snapshot = sess.Export
			if len(args) >= 4 {
				if err := sess.LoadSampleTemplate(args[3]); err != nil {
					die(l, "template failed", err)
				}
			}
			if err := storage.SaveDocument(path, sess.Export()); err != nil {
				die(l, "save failed", err)
			}
			fmt.Printf("Created %s with %d elements\n", path, sess.ElementCount())
			return
		case "export":
			needArgs(args, 4, "export requires <file> and an output")
			cfg, _, _ := config.Load()
			sess := editor.New(cfg.Canvas)
			rescue.Dir, rescue.Snapshot = filepath.Dir(args[2]), sess.Export
			if err := openInto(sess, args[2]); err != nil {
				die(l, "open failed", err)
			}
			page := sess.Page(strings.TrimSuffix(filepath.Base(args[2]), filepath.Ext(args[2])))
			if args[3] == "--preset" {
				needArgs(args, 6, "export --preset requires a preset name and an output dir")
				files, err := export.BatchExport(page, export.BatchOptions{
					Preset: export.PresetName(args[4]),
					OutDir: args[5],
					Name:   page.Title,
				})
				if err != nil {
					die(l, "export failed", err)
				}
				for _, f := range files {
					fmt.Println("Wrote", f)
				}
				return
			}
			out := args[3]
			f, err := export.FormatForPath(out)
			if err != nil {
				die(l, "export format", err)
			}
			var opt export.Options
			if len(args) >= 5 {
				r, err := strconv.ParseFloat(args[4], 64)
				if err != nil {
					die(l, "pixel ratio", err)
				}
				opt.PixelRatio = r
			}
			if err := export.WriteFile(out, f, page, opt); err != nil {
				die(l, "export failed", err)
			}
			fmt.Println("Wrote", out)
			return
		case "pack":
			needArgs(args, 4, "pack requires <file> and <out.zip>")
			cfg, _, _ := config.Load()
			sess := editor.New(cfg.Canvas)
			if err := openInto(sess, args[2]); err != nil {
				die(l, "open failed", err)
			}
			title := strings.TrimSuffix(filepath.Base(args[2]), filepath.Ext(args[2]))
			formats := []export.Format{export.FormatPDF, export.FormatPNG, export.FormatSVG}
			if err := cvpack.Write(args[3], sess.Export(), sess.Page(title), formats); err != nil {
				die(l, "pack failed", err)
			}
			fmt.Println("Wrote", args[3])
			return
		case "unpack":
			needArgs(args, 4, "unpack requires <in.zip> and <file>")
			p, err := cvpack.Open(args[2])
			if err != nil {
				die(l, "unpack failed", err)
			}
			cfg, _, _ := config.Load()
			sess := editor.New(cfg.Canvas)
			rep, err := sess.Load(p.Canvas)
			if err != nil {
				die(l, "bundle canvas invalid", err)
			}
			if err := storage.SaveDocument(args[3], sess.Export()); err != nil {
				die(l, "save failed", err)
			}
			fmt.Printf("Restored %s (%d elements, %d skipped)\n", args[3], rep.Loaded, rep.Skipped)
			if len(args) >= 5 {
				n, err := cvpack.ExtractRenders(args[2], args[4])
				if err != nil {
					die(l, "extract failed", err)
				}
				fmt.Printf("Extracted %d renders to %s\n", n, args[4])
			}
			return
		case "validate":
			needArgs(args, 3, "validate requires <file>")
			if !validate(args[2]) {
				os.Exit(1)
			}
			return
		case "ui":
			var path string
			if len(args) >= 3 {
				path = args[2]
			}
			if err := ui.Run(path); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

// openInto loads a document file in any accepted shape, falling back to the
// newest backup when the file itself is unreadable.
func openInto(sess *editor.Session, path string) error {
	data, err := os.ReadFile(path)
	if err == nil {
		if _, err = sess.Load(data); err == nil {
			return nil
		}
	}
	doc, derr := storage.OpenDocument(path)
	if derr != nil {
		return errors.Join(err, derr)
	}
	_, err = sess.LoadDocument(doc)
	return err
}

func validate(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("Error:", err)
		return false
	}
	p, err := document.Decode(data)
	if err != nil {
		fmt.Println("Invalid:", err)
		return false
	}
	fmt.Println("Format:", p.Format)
	switch p.Format {
	case document.FormatElements:
		bad := 0
		for _, e := range p.Entries {
			if e.Err != nil {
				bad++
				fmt.Printf("  element %d: %v\n", e.Index, e.Err)
			}
		}
		fmt.Printf("Elements: %d (%d invalid)\n", len(p.Entries), bad)
		return bad == 0
	default:
		fmt.Printf("Nodes: %d\n", len(p.Nodes))
		return true
	}
}
