package idgen

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Snowflake layout: 41 bits of milliseconds since epoch, 10 bits of worker
// id, 12 bits of per-millisecond sequence. IDs are unique across workers
// and roughly time-ordered, which keeps them friendly to database indexes.
const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	defaultGenerator *Snowflake
	once             sync.Once
)

// Init sets up the default generator. Each server instance must use a
// distinct workerID for the uniqueness guarantee to hold.
func Init(workerID int64) {
	once.Do(func() {
		if workerID < 0 || workerID > maxWorkerID {
			log.Fatalf("workerID must be between 0 and %d", maxWorkerID)
		}
		defaultGenerator = &Snowflake{
			workerID:  workerID,
			timestamp: 0,
			sequence:  0,
		}
	})
}

// NextID returns the next id from the default generator.
func NextID() int64 {
	if defaultGenerator == nil {
		Init(1)
	}
	return defaultGenerator.Generate()
}

func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// sequence exhausted for this millisecond, spin to the next one
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	id := ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence

	return id
}

// GenerateTransactionNo returns a ledger entry number such as
// TXN20260115143052000018B35D4C01. The suffix is the full snowflake id in
// base 36, so transaction numbers are as unique as the ids themselves and
// the unique index on transaction_no never rejects a commit.
func GenerateTransactionNo() string {
	id := NextID()
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("TXN%s%s", timestamp, strings.ToUpper(strconv.FormatInt(id, 36)))
}

// GenerateAccountNumber returns a bank account number with the branch
// prefix 3000 followed by eight digits.
func GenerateAccountNumber() string {
	return fmt.Sprintf("3000%08d", NextID()%100000000)
}

// GenerateIBAN returns a French-format IBAN (FR + 2 check digits + 5 bank
// + 5 branch + 11 account + 2 key) derived from a snowflake id, stored
// without grouping spaces.
func GenerateIBAN() string {
	id := NextID()
	return fmt.Sprintf("FR7630004%05d%011d%02d", id%100000, id%100000000000, id%97)
}

// GenerateCardNumber returns a 16-digit Visa-range card number.
func GenerateCardNumber() string {
	return fmt.Sprintf("4532%012d", NextID()%1000000000000)
}

// GenerateCVV returns a three-digit card verification value.
func GenerateCVV() string {
	return fmt.Sprintf("%03d", NextID()%900+100)
}
