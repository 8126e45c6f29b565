package main

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gamma-omg/servicelog-mcp/docstore"
	"github.com/gamma-omg/servicelog-mcp/importer"
	"github.com/gamma-omg/servicelog-mcp/records"
)

type SourceStore interface {
	Sources(ctx context.Context) ([]docstore.Source, error)
	PutSource(ctx context.Context, src docstore.Source) error
	DeleteSource(ctx context.Context, path string) error
}

type DocumentSink interface {
	PutDocument(ctx context.Context, doc records.Document) error
	DeleteDocument(ctx context.Context, id string) error
}

type FileReader interface {
	CanRead(path string) bool
	ReadText(path string) (string, error)
}

// DocRegistry mirrors the files under root into Document records.
type DocRegistry struct {
	log              *slog.Logger
	root             string
	mergeEventsDelay time.Duration
	sources          SourceStore
	docs             DocumentSink
	readers          []FileReader
}

// DiskDoc is a readable file under the root. File is relative to the root.
type DiskDoc struct {
	File    string
	Crc     uint32
	Text    string
	ModTime time.Time
}

type diskDocs map[string]DiskDoc
type dbDocs map[string]docstore.Source

func (dr *DocRegistry) RegisterReader(readers ...FileReader) {
	dr.readers = append(dr.readers, readers...)
}

func (dr *DocRegistry) Sync(ctx context.Context) error {
	disk, err := dr.collectDocs()
	if err != nil {
		return err
	}

	diskMap := make(diskDocs)
	for _, d := range disk {
		diskMap[d.File] = d
	}

	db, err := dr.sources.Sources(ctx)
	if err != nil {
		return err
	}

	dbMap := make(dbDocs)
	for _, d := range db {
		dbMap[d.Path] = d
	}

	err = dr.injestNewDocuments(ctx, diskMap, dbMap)
	if err != nil {
		return err
	}

	err = dr.forgetRemovedDocuments(ctx, diskMap, dbMap)
	if err != nil {
		return err
	}

	return nil
}

// Watch keeps the registry in sync with the root until ctx is done. Bursts of file
// events are merged into a single Sync after mergeEventsDelay of quiet.
func (dr *DocRegistry) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := dr.watchTree(w, dr.root); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()

		var timer *time.Timer
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op == fsnotify.Chmod {
					continue
				}

				if ev.Has(fsnotify.Create) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						if err := dr.watchTree(w, ev.Name); err != nil {
							dr.log.Warn("failed to watch directory", "dir", ev.Name, "error", err)
						}
					}
				}

				if timer == nil {
					timer = time.NewTimer(dr.mergeEventsDelay)
				} else {
					timer.Reset(dr.mergeEventsDelay)
				}
				pending = timer.C

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				dr.log.Error("watcher error", "error", err)

			case <-pending:
				pending = nil
				if err := dr.Sync(ctx); err != nil {
					dr.log.Error("failed to sync documents", "error", err)
				}
			}
		}
	}()

	return nil
}

func (dr *DocRegistry) watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		if err := w.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}

		return nil
	})
}

func (dr *DocRegistry) collectDocs() (docs []DiskDoc, err error) {
	err = filepath.WalkDir(dr.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		reader, e := dr.findReader(path)
		if e != nil {
			dr.log.Warn(fmt.Sprintf("unsupported file: %s", path))
			return nil
		}

		text, e := reader.ReadText(path)
		if e != nil {
			dr.log.Warn("failed to read document", "file", path, "error", e)
			return nil
		}

		rel, e := filepath.Rel(dr.root, path)
		if e != nil {
			return e
		}

		var modTime time.Time
		if info, e := d.Info(); e == nil {
			modTime = info.ModTime()
		}

		docs = append(docs, DiskDoc{
			File:    filepath.ToSlash(rel),
			Crc:     crc32.Checksum([]byte(text), crc32.IEEETable),
			Text:    text,
			ModTime: modTime,
		})

		return nil
	})
	if err != nil {
		return
	}

	return
}

func (dr *DocRegistry) injestNewDocuments(ctx context.Context, disk diskDocs, db dbDocs) error {
	for _, file := range sortedKeys(disk) {
		diskDoc := disk[file]
		dbDoc, ok := db[file]
		if ok && dbDoc.Crc == diskDoc.Crc {
			continue
		}

		doc := documentFromDisk(diskDoc)
		if err := dr.docs.PutDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to store document %s: %w", file, err)
		}

		err := dr.sources.PutSource(ctx, docstore.Source{Path: file, DocID: doc.ID, Crc: diskDoc.Crc})
		if err != nil {
			return fmt.Errorf("failed to track document %s: %w", file, err)
		}

		dr.log.Info("document ingested", "file", file, "id", doc.ID)
	}

	return nil
}

func (dr *DocRegistry) forgetRemovedDocuments(ctx context.Context, disk diskDocs, db dbDocs) error {
	for _, file := range sortedKeys(db) {
		if _, ok := disk[file]; ok {
			continue
		}

		dbDoc := db[file]
		err := dr.docs.DeleteDocument(ctx, dbDoc.DocID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to remove document %s from store: %w", file, err)
		}

		if err := dr.sources.DeleteSource(ctx, file); err != nil {
			return err
		}

		dr.log.Info("document forgotten", "file", file, "id", dbDoc.DocID)
	}

	return nil
}

func (dr *DocRegistry) findReader(file string) (FileReader, error) {
	for _, r := range dr.readers {
		if r.CanRead(file) {
			return r, nil
		}
	}

	return nil, fmt.Errorf("unable to find reader for file type: %s", filepath.Ext(file))
}

// documentFromDisk derives the record for a file. The id depends on the path only, so a
// changed file replaces its previous version.
func documentFromDisk(d DiskDoc) records.Document {
	name := filepath.Base(d.File)
	return records.Document{
		ID:        importer.StableID("file", d.File),
		Title:     strings.TrimSuffix(name, filepath.Ext(name)),
		Filename:  name,
		Content:   d.Text,
		CreatedAt: d.ModTime.UTC().Truncate(time.Millisecond),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}
