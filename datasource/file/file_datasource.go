package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/datasource"
)

// Conf configures a DataSource
type Conf struct {
	Pattern          string   // glob matched against file base names. Defaults to "*".
	BatchSize        int      // The maximum number of Rows per batch. Defaults to datasource.DefaultBatchSize.
	PartitionColumns []string // partition entry names. Discovered from directory names when empty.
}

// DataSource is a directory tree of files containing data
type DataSource struct {
	root    string
	parser  datasource.Parser
	conf    Conf
	lock    sync.Mutex
	limit   int
	filters []etl.PartitionPredicate
}

// New is a factory for DataSources. A nil conf uses defaults.
func New(root string, parser datasource.Parser, conf *Conf) *DataSource {
	c := Conf{}
	if conf != nil {
		c = *conf
	}
	if c.Pattern == "" {
		c.Pattern = "*"
	}
	if c.BatchSize < 1 {
		c.BatchSize = datasource.DefaultBatchSize
	}
	return &DataSource{root: root, parser: parser, conf: c, limit: -1}
}

// SetLimit implements etl.LimitableExtractor. The smallest limit wins.
func (ds *DataSource) SetLimit(n int) {
	ds.lock.Lock()
	defer ds.lock.Unlock()
	if n < 0 {
		n = 0
	}
	if ds.limit < 0 || n < ds.limit {
		ds.limit = n
	}
}

// Limited implements etl.LimitableExtractor
func (ds *DataSource) Limited() bool {
	ds.lock.Lock()
	defer ds.lock.Unlock()
	return ds.limit >= 0
}

// PartitionColumns implements etl.PartitionedExtractor. When none were
// configured, they are discovered from the directory names under root.
func (ds *DataSource) PartitionColumns() []string {
	if len(ds.conf.PartitionColumns) > 0 {
		return append([]string(nil), ds.conf.PartitionColumns...)
	}
	seen := make(map[string]bool)
	var cols []string
	_ = filepath.WalkDir(ds.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == ds.root {
			return nil
		}
		if name, _, ok := partitionSegment(d.Name()); ok && !seen[name] {
			seen[name] = true
			cols = append(cols, name)
		}
		return nil
	})
	return cols
}

// SetPartitionFilter implements etl.PartitionedExtractor. Filters accumulate.
func (ds *DataSource) SetPartitionFilter(p etl.PartitionPredicate) {
	ds.lock.Lock()
	defer ds.lock.Unlock()
	ds.filters = append(ds.filters, p)
}

// Extract implements etl.Extractor. Files are discovered eagerly, in lexical
// order, but opened one at a time as batches are pulled.
func (ds *DataSource) Extract(ctx context.Context) (etl.RowsIterator, error) {
	ds.lock.Lock()
	limit := ds.limit
	filters := append([]etl.PartitionPredicate(nil), ds.filters...)
	ds.lock.Unlock()
	for _, f := range filters {
		if err := f.Valid(); err != nil {
			return nil, err
		}
	}
	files, err := ds.discover(filters)
	if err != nil {
		return nil, err
	}
	return &fileIterator{source: ds, files: files, limit: limit}, nil
}

// a file to read, and the partition entries of its directory
type target struct {
	path       string
	partitions []etl.Entry
}

func (ds *DataSource) discover(filters []etl.PartitionPredicate) ([]target, error) {
	info, err := os.Stat(ds.root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []target{{path: ds.root}}, nil
	}
	var files []target
	err = filepath.WalkDir(ds.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == ds.root {
			return nil
		}
		if d.IsDir() {
			if name, value, ok := partitionSegment(d.Name()); ok && !admits(filters, name, value) {
				return filepath.SkipDir
			}
			return nil
		}
		matched, err := filepath.Match(ds.conf.Pattern, d.Name())
		if err != nil {
			return err
		}
		if !matched {
			return nil
		}
		rel, err := filepath.Rel(ds.root, filepath.Dir(path))
		if err != nil {
			return err
		}
		files = append(files, target{path: path, partitions: partitionsOf(rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list %s: %w", ds.root, err)
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, nil
}

// partitionSegment recognises a name=value directory name
func partitionSegment(segment string) (string, interface{}, bool) {
	idx := strings.IndexByte(segment, '=')
	if idx <= 0 {
		return "", nil, false
	}
	return segment[:idx], datasource.ParseValue(segment[idx+1:]), true
}

func partitionsOf(rel string) []etl.Entry {
	if rel == "." {
		return nil
	}
	var entries []etl.Entry
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if name, value, ok := partitionSegment(segment); ok {
			entries = append(entries, etl.E(name, value))
		}
	}
	return entries
}

// admits returns false iff a filter on name rejects value
func admits(filters []etl.PartitionPredicate, name string, value interface{}) bool {
	for _, f := range filters {
		if f.Entry == name && !f.Matches(value) {
			return false
		}
	}
	return true
}
