package storage

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const fileStoreVersion = "1.0"

// FileStore persists values to a yaml document, one file per namespace,
// readable only by the owner.
type FileStore struct {
	lock sync.Mutex // Ensure thread-safe access
	path string
}

type fileDocument struct {
	Version   string            `yaml:"version"`
	Timestamp time.Time         `yaml:"timestamp"`
	Values    map[string]string `yaml:"values"`
}

func newFileDocument() fileDocument {
	return fileDocument{
		Version:   fileStoreVersion,
		Timestamp: time.Now().UTC(),
		Values:    make(map[string]string),
	}
}

// DefaultDirectory is ~/.config/pipedeck for the current user.
func DefaultDirectory() (string, error) {
	usr, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	return filepath.Join(usr.HomeDir, ".config", "pipedeck"), nil
}

// NewFileStore returns a store backed by <directory>/<namespace>.yaml. The
// directory is created when missing.
func NewFileStore(directory string, namespace string) (*FileStore, error) {

	if !IsValidNamespace(namespace) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}

	if len(directory) == 0 {
		dir, err := DefaultDirectory()
		if err != nil {
			return nil, err
		}
		directory = dir
	}

	if _, err := os.Stat(directory); os.IsNotExist(err) {
		if err := os.MkdirAll(directory, 0700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return &FileStore{
		path: filepath.Join(directory, fmt.Sprintf("%s.yaml", namespace)),
	}, nil
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(key string) (string, bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	doc, err := f.load()
	if err != nil {
		return "", false, err
	}

	value, ok := doc.Values[key]
	return value, ok, nil
}

func (f *FileStore) Set(key string, value string) error {

	logrus.WithFields(logrus.Fields{
		"path": f.path,
		"key":  key,
	}).Debugln("Writing storage value")

	f.lock.Lock()
	defer f.lock.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	doc.Values[key] = value
	return f.commit(doc)
}

func (f *FileStore) Remove(keys ...string) error {

	logrus.WithFields(logrus.Fields{
		"path": f.path,
		"keys": keys,
	}).Debugln("Removing storage values")

	f.lock.Lock()
	defer f.lock.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	changed := false
	for _, key := range keys {
		if _, ok := doc.Values[key]; ok {
			delete(doc.Values, key)
			changed = true
		}
	}

	if !changed {
		return nil
	}

	return f.commit(doc)
}

func (f *FileStore) open() (*os.File, error) {
	// Only allow read/write access to the owner
	file, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage file: %w", err)
	}
	return file, nil
}

// load must be called with the lock held. A missing file reads as an empty
// document and is only created by commit.
func (f *FileStore) load() (fileDocument, error) {

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return newFileDocument(), nil
	}
	if err != nil {
		return fileDocument{}, fmt.Errorf("failed to read storage file: %w", err)
	}

	if len(data) == 0 {
		return newFileDocument(), nil
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		// A corrupt file is treated as empty; the next commit overwrites it.
		logrus.WithError(err).Errorf("Failed to parse storage file %s, reinitializing", f.path)
		return newFileDocument(), nil
	}

	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}

	return doc, nil
}

// commit must be called with the lock held.
func (f *FileStore) commit(doc fileDocument) error {

	file, err := f.open()
	if err != nil {
		return err
	}
	defer file.Close()

	// Truncate the file to ensure clean write
	if err := file.Truncate(0); err != nil {
		return err
	}

	if _, err := file.Seek(0, 0); err != nil {
		return err
	}

	doc.Version = fileStoreVersion
	doc.Timestamp = time.Now().UTC()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)

	if err := encoder.Encode(doc); err != nil {
		return err
	}

	return encoder.Close()
}
