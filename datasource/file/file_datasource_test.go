package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/datasource/parser/dsv"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

// writes root/year=Y/region=R/data.csv files
func hiveTree(t *testing.T) string {
	root := t.TempDir()
	files := map[string]string{
		"year=2019/region=eu/data.csv": "id\n1\n2\n",
		"year=2020/region=eu/data.csv": "id\n3\n4\n5\n",
		"year=2020/region=us/data.csv": "id\n6\n",
		"year=2021/region=us/data.csv": "id\n7\n8\n",
		"year=2021/region=us/notes.txt": "not data",
	}
	for path, contents := range files {
		full := filepath.Join(root, path)
		require.Nil(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.Nil(t, os.WriteFile(full, []byte(contents), 0o644))
	}
	return root
}

func extract(t *testing.T, ds *DataSource) []etl.Rows {
	iter, err := ds.Extract(ctx)
	require.Nil(t, err)
	var batches []etl.Rows
	require.Nil(t, etl.Drain(ctx, iter, func(b etl.Rows) error {
		batches = append(batches, b)
		return nil
	}))
	return batches
}

func ids(batches []etl.Rows) []string {
	var out []string
	for _, b := range batches {
		for _, r := range b.All() {
			out = append(out, r.Value("id").(string))
		}
	}
	return out
}

func TestFileDataSource(t *testing.T) {
	root := hiveTree(t)
	ds := New(root, dsv.CreateParser(nil), &Conf{Pattern: "*.csv", BatchSize: 2})
	batches := extract(t, ds)
	// batches never span files
	var sizes []int
	for _, b := range batches {
		sizes = append(sizes, b.Len())
	}
	require.Equal(t, []int{2, 2, 1, 1, 2}, sizes)
	require.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8"}, ids(batches))
	first := batches[0].At(0)
	require.Equal(t, []string{"id", "year", "region"}, first.Names())
	require.Equal(t, int64(2019), first.Value("year"))
	require.Equal(t, "eu", first.Value("region"))
}

func TestFileDataSourcePartitionColumns(t *testing.T) {
	root := hiveTree(t)
	ds := New(root, dsv.CreateParser(nil), nil)
	require.Equal(t, []string{"year", "region"}, ds.PartitionColumns())
	ds = New(root, dsv.CreateParser(nil), &Conf{PartitionColumns: []string{"year"}})
	require.Equal(t, []string{"year"}, ds.PartitionColumns())
}

func TestFileDataSourcePruning(t *testing.T) {
	root := hiveTree(t)
	ds := New(root, dsv.CreateParser(nil), &Conf{Pattern: "*.csv"})
	ds.SetPartitionFilter(etl.PartitionPredicate{Entry: "year", Op: etl.GreaterThanOrEqual, Value: 2020})
	ds.SetPartitionFilter(etl.PartitionPredicate{Entry: "region", Op: etl.Equal, Value: "us"})
	require.Equal(t, []string{"6", "7", "8"}, ids(extract(t, ds)))
}

func TestFileDataSourcePrunedDirectoriesAreNotRead(t *testing.T) {
	root := hiveTree(t)
	// unparseable data in a pruned partition
	bad := filepath.Join(root, "year=2018", "data.csv")
	require.Nil(t, os.MkdirAll(filepath.Dir(bad), 0o755))
	require.Nil(t, os.WriteFile(bad, []byte("id\n1,2,3\n"), 0o644))
	ds := New(root, dsv.CreateParser(nil), &Conf{Pattern: "*.csv"})
	ds.SetPartitionFilter(etl.PartitionPredicate{Entry: "year", Op: etl.GreaterThan, Value: 2018})
	require.Len(t, ids(extract(t, ds)), 8)
}

func TestFileDataSourceLimit(t *testing.T) {
	root := hiveTree(t)
	ds := New(root, dsv.CreateParser(nil), &Conf{Pattern: "*.csv", BatchSize: 10})
	ds.SetLimit(4)
	batches := extract(t, ds)
	require.Equal(t, []string{"1", "2", "3", "4"}, ids(batches))
	require.Len(t, batches, 2)
}

func TestFileDataSourceSingleFile(t *testing.T) {
	root := hiveTree(t)
	ds := New(filepath.Join(root, "year=2020", "region=eu", "data.csv"), dsv.CreateParser(nil), nil)
	batches := extract(t, ds)
	require.Equal(t, []string{"3", "4", "5"}, ids(batches))
}

func TestFileDataSourceMissingRoot(t *testing.T) {
	ds := New(filepath.Join(t.TempDir(), "absent"), dsv.CreateParser(nil), nil)
	_, err := ds.Extract(ctx)
	require.NotNil(t, err)
}

func TestFileDataSourceEarlyClose(t *testing.T) {
	root := hiveTree(t)
	ds := New(root, dsv.CreateParser(nil), &Conf{Pattern: "*.csv", BatchSize: 1})
	iter, err := ds.Extract(ctx)
	require.Nil(t, err)
	_, ok, err := iter.Next(ctx)
	require.Nil(t, err)
	require.True(t, ok)
	require.Nil(t, iter.Close())
	_, ok, err = iter.Next(ctx)
	require.Nil(t, err)
	require.False(t, ok)
}
