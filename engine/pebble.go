package engine

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
)

const pebbleBatchSize = 10000

// PebbleEngine sorts by writing rows under their sort keys and reading each partition back with a bounded
// iterator. Keys are laid out as job id | partition | group key | order key | sequence, all big-endian, so one
// partition of one job is a contiguous key range.
type PebbleEngine struct {
	db     *pebble.DB
	jobSeq uint64
}

// NewPebbleEngine opens a store in dir, or a throwaway in-memory one.
func NewPebbleEngine(dir string, inMemory bool) (*PebbleEngine, error) {
	pebbleOptions := &pebble.Options{}
	if inMemory {
		pebbleOptions.FS = vfs.NewMem()
		if dir == "" {
			dir = "winagg"
		}
	}
	db, err := pebble.Open(dir, pebbleOptions)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &PebbleEngine{db: db}, nil
}

func (p *PebbleEngine) PartitionAndSort(ds *Dataset, spec SortSpec) ([]Partition, error) {
	kb, err := newKeyBuilder(ds.ColumnTypes(), spec)
	if err != nil {
		return nil, err
	}
	colTypes := ds.ColumnTypes()
	jobID := atomic.AddUint64(&p.jobSeq, 1)
	job := &pebbleJob{db: p.db, id: jobID, open: int64(spec.NumPartitions)}

	batch := p.db.NewBatch()
	var keyBuff, valueBuff []byte
	for seq, row := range ds.Rows {
		keyBuff = common.AppendUint64ToBufferBE(keyBuff[:0], jobID)
		var partition int
		// the partition goes between job id and sort key, build the sort key after a placeholder
		keyBuff = append(keyBuff, 0, 0, 0, 0)
		partition, keyBuff, err = kb.build(row, uint64(seq), keyBuff)
		if err != nil {
			_ = batch.Close()
			job.cleanup()
			return nil, err
		}
		putPartition(keyBuff[8:12], partition)
		valueBuff, err = common.EncodeRow(row, colTypes, valueBuff[:0])
		if err != nil {
			_ = batch.Close()
			job.cleanup()
			return nil, err
		}
		if err := batch.Set(keyBuff, valueBuff, nil); err != nil {
			_ = batch.Close()
			job.cleanup()
			return nil, errors.WithStack(err)
		}
		if batch.Count() >= pebbleBatchSize {
			if err := batch.Commit(pebble.NoSync); err != nil {
				job.cleanup()
				return nil, errors.WithStack(err)
			}
			batch = p.db.NewBatch()
		}
	}
	if err := batch.Commit(pebble.NoSync); err != nil {
		job.cleanup()
		return nil, errors.WithStack(err)
	}
	log.Debugf("pebble job %d wrote %d rows (%s)", jobID, len(ds.Rows), spec)

	partitions := make([]Partition, spec.NumPartitions)
	for i := range partitions {
		lower := partitionPrefix(jobID, i)
		upper := partitionPrefix(jobID, i+1)
		partitions[i] = &pebblePartition{
			id:       i,
			job:      job,
			colTypes: colTypes,
			iter:     p.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper}),
		}
	}
	return partitions, nil
}

func (p *PebbleEngine) Close() error {
	return errors.WithStack(p.db.Close())
}

func partitionPrefix(jobID uint64, partition int) []byte {
	prefix := make([]byte, 0, 12)
	prefix = common.AppendUint64ToBufferBE(prefix, jobID)
	prefix = common.AppendUint32ToBufferBE(prefix, uint32(partition))
	return prefix
}

func putPartition(b []byte, partition int) {
	common.AppendUint32ToBufferBE(b[:0], uint32(partition))
}

// pebbleJob deletes a job's rows once all of its partitions are closed.
type pebbleJob struct {
	db   *pebble.DB
	id   uint64
	open int64
	once sync.Once
}

func (j *pebbleJob) partitionClosed() {
	if atomic.AddInt64(&j.open, -1) == 0 {
		j.cleanup()
	}
}

func (j *pebbleJob) cleanup() {
	j.once.Do(func() {
		start := common.AppendUint64ToBufferBE(nil, j.id)
		end := common.AppendUint64ToBufferBE(nil, j.id+1)
		if err := j.db.DeleteRange(start, end, pebble.NoSync); err != nil {
			log.Warnf("failed to delete rows of pebble job %d: %v", j.id, err)
		}
	})
}

type pebblePartition struct {
	id       int
	job      *pebbleJob
	colTypes []common.ColumnType
	iter     *pebble.Iterator
	started  bool
	closed   bool
}

func (p *pebblePartition) ID() int {
	return p.id
}

func (p *pebblePartition) Next() (common.Row, bool, error) {
	if p.closed {
		return common.Row{}, false, nil
	}
	var valid bool
	if !p.started {
		p.started = true
		valid = p.iter.First()
	} else {
		valid = p.iter.Next()
	}
	if !valid {
		if err := p.iter.Error(); err != nil {
			return common.Row{}, false, errors.WithStack(err)
		}
		return common.Row{}, false, nil
	}
	values := make([]interface{}, len(p.colTypes))
	if err := common.DecodeRow(p.iter.Value(), p.colTypes, values, 0); err != nil {
		return common.Row{}, false, err
	}
	return common.NewRow(values...), true, nil
}

func (p *pebblePartition) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.iter.Close()
	p.job.partitionClosed()
	return errors.WithStack(err)
}
