package worker

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Checker runs a full verification pass over one input text
type Checker interface {
	Check(ctx context.Context, text string) (*model.FinalReport, error)
}

// CheckJob represents one input to check
type CheckJob struct {
	Input   string
	Checker Checker
}

// Execute executes the check job
func (j *CheckJob) Execute(ctx context.Context) Result {
	report, err := j.Checker.Check(ctx, j.Input)
	if err != nil {
		return &CheckResult{Input: j.Input, Error: err}
	}
	return &CheckResult{Input: j.Input, Report: report}
}

// CheckResult represents the result of a check job
type CheckResult struct {
	Input  string
	Report *model.FinalReport
	Error  error
}

// GetError returns the error from the check result
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor checks multiple inputs concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(checker Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
	}
}

// ProcessInputs checks every input and returns one result per input, in input order
func (b *BatchProcessor) ProcessInputs(ctx context.Context, inputs []string) []*CheckResult {
	if len(inputs) == 0 {
		return []*CheckResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, input := range inputs {
		if !pool.Submit(&CheckJob{Input: input, Checker: b.checker}) {
			break
		}
	}

	results := pool.Wait()

	checked := make([]*CheckResult, len(inputs))
	failed := 0
	for i, input := range inputs {
		if i < len(results) && results[i] != nil {
			checked[i] = results[i].(*CheckResult)
		} else {
			checked[i] = &CheckResult{Input: input, Error: notRun(ctx)}
		}
		if checked[i].Error != nil {
			failed++
		}
	}

	zap.L().Info("worker: batch complete",
		zap.Int("inputs", len(inputs)),
		zap.Int("failed", failed),
	)

	return checked
}

func notRun(ctx context.Context) error {
	if err := context.Cause(ctx); err != nil {
		return eris.Wrap(err, "worker: check not run")
	}
	return eris.New("worker: check not run")
}

// ProcessFile reads inputs from a file and checks them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CheckResult, error) {
	inputs, err := ReadInputsFromFile(filePath)
	if err != nil {
		return nil, err
	}

	return b.ProcessInputs(ctx, inputs), nil
}

// ReadInputsFromFile reads one input text per line. Blank lines and lines
// starting with # are skipped; repeated lines are checked once.
func ReadInputsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "worker: open inputs file")
	}
	defer func() { _ = file.Close() }()

	var inputs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			inputs = append(inputs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "worker: scan inputs file")
	}

	return inputs, nil
}
