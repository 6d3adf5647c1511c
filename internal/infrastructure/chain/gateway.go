package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bernice-stories/bernice/internal/apperrors"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/pkg/config"
)

// GenericTxFailure is the message surfaced for any failed write. Details go
// to the chain log channel.
const GenericTxFailure = "transaction failed, see logs"

// ContractCaller performs read-only contract calls. *bind.BoundContract satisfies it.
type ContractCaller interface {
	Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error
}

// ContractTransactor signs and sends contract writes. *bind.BoundContract satisfies it.
type ContractTransactor interface {
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

// HeadReader reads block headers. *ethclient.Client satisfies it.
type HeadReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Confirmer waits for a transaction receipt.
type Confirmer interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Signer produces transact options for one write.
type Signer func(ctx context.Context) (*bind.TransactOpts, error)

// GatewayDeps are the collaborators a Gateway needs. Transactor, Signer and
// Confirmer may be nil, which disables writes.
type GatewayDeps struct {
	Address    common.Address
	ChainID    uint64
	Caller     ContractCaller
	Transactor ContractTransactor
	Signer     Signer
	Head       HeadReader
	Confirmer  Confirmer
}

// Gateway maps story actions onto the Bernice contract.
type Gateway struct {
	deps    GatewayDeps
	tracker *TxTracker
	decoder *EventDecoder
	logger  *logging.ChanneledLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGateway(deps GatewayDeps, tracker *TxTracker, logger *logging.ChanneledLogger) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		deps:    deps,
		tracker: tracker,
		decoder: NewEventDecoder(deps.Address),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Close stops pending confirmation waits and blocks until they return.
func (g *Gateway) Close() {
	g.cancel()
	g.wg.Wait()
}

func (g *Gateway) Address() common.Address { return g.deps.Address }
func (g *Gateway) ChainID() uint64         { return g.deps.ChainID }
func (g *Gateway) Tracker() *TxTracker     { return g.tracker }

// WritesEnabled reports whether a signer is configured.
func (g *Gateway) WritesEnabled() bool {
	return g.deps.Transactor != nil && g.deps.Signer != nil && g.deps.Confirmer != nil
}

// =============================================================================
// Reads
// =============================================================================

func (g *Gateway) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, config.ChainCallTimeout)
	defer cancel()

	start := time.Now()
	var out []interface{}
	if err := g.deps.Caller.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		g.logger.Chain().Error("Contract call failed", "method", method, "error", err.Error(), "duration", time.Since(start))
		return nil, classifyCallError(method, err)
	}
	g.logger.Chain().Debug("Contract call completed", "method", method, "duration", time.Since(start))
	return out, nil
}

func classifyCallError(method string, err error) error {
	if isRevert(err) {
		return apperrors.New(apperrors.ErrorTypeNotFound, method+" reverted", err)
	}
	return apperrors.Unavailable("contract read failed", err)
}

func isRevert(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

// StoryCount returns s_storyCount.
func (g *Gateway) StoryCount(ctx context.Context) (uint64, error) {
	out, err := g.call(ctx, MethodStoryCount)
	if err != nil {
		return 0, err
	}
	v, err := DecodeSingle(out, MethodStoryCount)
	if err != nil {
		return 0, err
	}
	return asUint64(v, "count")
}

// GetStory reads getStory(id).
func (g *Gateway) GetStory(ctx context.Context, id *big.Int) (*OnChainStory, error) {
	out, err := g.call(ctx, MethodGetStory, id)
	if err != nil {
		return nil, err
	}
	return DecodeStory(id, out)
}

// GetStoryMapping reads the public s_stories(id) mapping.
func (g *Gateway) GetStoryMapping(ctx context.Context, id *big.Int) (*OnChainStory, error) {
	out, err := g.call(ctx, MethodStories, id)
	if err != nil {
		return nil, err
	}
	return DecodeStory(id, out)
}

// ChapterContent reads getChapterContent(id, n).
func (g *Gateway) ChapterContent(ctx context.Context, id, chapter *big.Int) (string, error) {
	out, err := g.call(ctx, MethodGetChapterContent, id, chapter)
	if err != nil {
		return "", err
	}
	v, err := DecodeSingle(out, MethodGetChapterContent)
	if err != nil {
		return "", err
	}
	return asString(v, "content")
}

// SubmissionsCount reads getSubmissionsCount(id) for the open chapter slot.
func (g *Gateway) SubmissionsCount(ctx context.Context, id *big.Int) (uint64, error) {
	out, err := g.call(ctx, MethodGetSubmissionsCount, id)
	if err != nil {
		return 0, err
	}
	v, err := DecodeSingle(out, MethodGetSubmissionsCount)
	if err != nil {
		return 0, err
	}
	return asUint64(v, "count")
}

// GetSubmission reads getSubmission(id, n, index).
func (g *Gateway) GetSubmission(ctx context.Context, id, chapter, index *big.Int) (*OnChainSubmission, error) {
	out, err := g.call(ctx, MethodGetSubmission, id, chapter, index)
	if err != nil {
		return nil, err
	}
	return DecodeSubmission(id, chapter, index, out)
}

// HasVoted reads s_hasVoted(id, n, voter).
func (g *Gateway) HasVoted(ctx context.Context, id, chapter *big.Int, voter common.Address) (bool, error) {
	out, err := g.call(ctx, MethodHasVoted, id, chapter, voter)
	if err != nil {
		return false, err
	}
	v, err := DecodeSingle(out, MethodHasVoted)
	if err != nil {
		return false, err
	}
	voted, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("s_hasVoted returned %T", v)
	}
	return voted, nil
}

// AllStories reads stories 1..count, capped at limit. Newest ids come first.
func (g *Gateway) AllStories(ctx context.Context, limit int) ([]*OnChainStory, error) {
	count, err := g.StoryCount(ctx)
	if err != nil {
		return nil, err
	}

	capacity := count
	if limit > 0 && uint64(limit) < capacity {
		capacity = uint64(limit)
	}
	stories := make([]*OnChainStory, 0, capacity)
	for id := count; id >= 1; id-- {
		if limit > 0 && len(stories) >= limit {
			break
		}
		s, err := g.GetStory(ctx, new(big.Int).SetUint64(id))
		if err != nil {
			return nil, fmt.Errorf("failed to read story %d: %w", id, err)
		}
		stories = append(stories, s)
	}
	return stories, nil
}

// CompleteStory reads a story and every accepted chapter.
func (g *Gateway) CompleteStory(ctx context.Context, id *big.Int) (*CompleteStory, error) {
	s, err := g.GetStory(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &CompleteStory{Story: s, Chapters: make([]OnChainChapter, 0, s.CurrentChapterNumber)}
	for n := uint64(1); n <= s.CurrentChapterNumber; n++ {
		content, err := g.ChapterContent(ctx, id, new(big.Int).SetUint64(n))
		if err != nil {
			return nil, fmt.Errorf("failed to read chapter %d: %w", n, err)
		}
		result.Chapters = append(result.Chapters, OnChainChapter{ChapterNumber: n, Content: content})
	}
	return result, nil
}

// VotingStatus compares the current voting deadline with the latest block.
func (g *Gateway) VotingStatus(ctx context.Context, id *big.Int) (*VotingStatus, error) {
	s, err := g.GetStory(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.deps.Head == nil {
		return nil, apperrors.Unavailable("block header reader not configured", nil)
	}
	header, err := g.deps.Head.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, apperrors.Unavailable("failed to read latest block", err)
	}
	return BuildVotingStatus(s, header.Time), nil
}

// BuildVotingStatus derives voting state from a story and a block timestamp.
func BuildVotingStatus(s *OnChainStory, blockTime uint64) *VotingStatus {
	status := &VotingStatus{
		StoryID:       s.ID,
		ChapterNumber: s.CurrentChapterNumber + 1,
		VotingEnd:     s.CurrentChapterVotingEnd,
		BlockTime:     blockTime,
		Completed:     s.Completed,
	}
	if !s.Completed && blockTime < s.CurrentChapterVotingEnd {
		status.IsVotingOpen = true
		status.SecondsRemaining = s.CurrentChapterVotingEnd - blockTime
	}
	status.CanFinalize = !s.Completed && s.CurrentChapterVotingEnd > 0 && blockTime >= s.CurrentChapterVotingEnd
	return status
}

// =============================================================================
// Writes
// =============================================================================

// CreateStoryInput is the createStory argument set.
type CreateStoryInput struct {
	Title               string `json:"title"`
	TotalChapters       uint64 `json:"totalChapters"`
	VotingPeriodSeconds uint64 `json:"votingPeriodSeconds"`
	ChapterOneContent   string `json:"chapterOneContent"`
}

// ValidateTitle trims and bounds a story title.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperrors.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > config.MaxTitleLength {
		return "", apperrors.Validation(fmt.Sprintf("title must be at most %d characters", config.MaxTitleLength))
	}
	return title, nil
}

// ValidateContent trims and bounds chapter text.
func ValidateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperrors.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > config.MaxChapterLength {
		return "", apperrors.Validation(fmt.Sprintf("content must be at most %d characters", config.MaxChapterLength))
	}
	return content, nil
}

func (g *Gateway) CreateStory(ctx context.Context, in CreateStoryInput) (TxRecord, error) {
	title, err := ValidateTitle(in.Title)
	if err != nil {
		return TxRecord{}, err
	}
	content, err := ValidateContent(in.ChapterOneContent)
	if err != nil {
		return TxRecord{}, err
	}
	if in.TotalChapters == 0 {
		return TxRecord{}, apperrors.Validation("totalChapters must be at least 1")
	}
	if in.VotingPeriodSeconds == 0 {
		return TxRecord{}, apperrors.Validation("votingPeriodSeconds must be at least 1")
	}
	return g.transact(ctx, MethodCreateStory, "",
		title, new(big.Int).SetUint64(in.TotalChapters), new(big.Int).SetUint64(in.VotingPeriodSeconds), content)
}

func (g *Gateway) SubmitContinuation(ctx context.Context, storyID *big.Int, content string) (TxRecord, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return TxRecord{}, err
	}
	return g.transact(ctx, MethodSubmitContinuation, storyID.String(), storyID, content)
}

func (g *Gateway) Vote(ctx context.Context, storyID, submissionIndex *big.Int) (TxRecord, error) {
	return g.transact(ctx, MethodVote, storyID.String(), storyID, submissionIndex)
}

func (g *Gateway) FinalizeChapter(ctx context.Context, storyID *big.Int) (TxRecord, error) {
	return g.transact(ctx, MethodFinalizeChapter, storyID.String(), storyID)
}

func (g *Gateway) ExtendVoting(ctx context.Context, storyID *big.Int, extraSeconds uint64) (TxRecord, error) {
	if extraSeconds == 0 {
		return TxRecord{}, apperrors.Validation("extraSeconds must be at least 1")
	}
	return g.transact(ctx, MethodExtendVoting, storyID.String(), storyID, new(big.Int).SetUint64(extraSeconds))
}

// transact signs and sends a write, then waits for the receipt in the
// background. The returned record is in awaiting_confirmation, or failed.
func (g *Gateway) transact(ctx context.Context, method, storyID string, params ...interface{}) (TxRecord, error) {
	if !g.WritesEnabled() {
		return TxRecord{}, apperrors.Unavailable("contract writes are disabled: no signer configured", nil)
	}

	rec := g.tracker.Begin(method, storyID)
	log := g.logger.Chain().With("requestId", rec.RequestID, "method", method, "storyId", storyID)
	log.Info("Transaction awaiting signature")

	opts, err := g.deps.Signer(ctx)
	if err != nil {
		log.Error("Transaction signer failed", "error", err.Error())
		failed, _ := g.tracker.Fail(rec.RequestID, GenericTxFailure)
		return failed, apperrors.Transaction(GenericTxFailure, err)
	}
	opts.Context = ctx

	tx, err := g.deps.Transactor.Transact(opts, method, params...)
	if err != nil {
		log.Error("Transaction rejected", "error", err.Error())
		failed, _ := g.tracker.Fail(rec.RequestID, GenericTxFailure)
		if isRevert(err) {
			return failed, apperrors.New(apperrors.ErrorTypeConflict, "contract rejected "+method, err)
		}
		return failed, apperrors.Transaction(GenericTxFailure, err)
	}

	pending, _ := g.tracker.Advance(rec.RequestID, PhaseAwaitingConfirmation, func(r *TxRecord) {
		r.TxHash = tx.Hash().Hex()
	})
	log.Info("Transaction sent, awaiting confirmation", "txHash", tx.Hash().Hex())

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.confirm(rec.RequestID, tx, log)
	}()
	return pending, nil
}

func (g *Gateway) confirm(requestID string, tx *types.Transaction, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(g.ctx, config.TxConfirmTimeout)
	defer cancel()

	receipt, err := g.deps.Confirmer.WaitMined(ctx, tx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("Confirmation wait cancelled", "txHash", tx.Hash().Hex())
		} else {
			log.Error("Confirmation wait failed", "txHash", tx.Hash().Hex(), "error", err.Error())
		}
		g.tracker.Fail(requestID, GenericTxFailure)
		return
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		log.Error("Transaction reverted", "txHash", tx.Hash().Hex(), "block", receipt.BlockNumber)
		g.tracker.Fail(requestID, GenericTxFailure)
		return
	}

	storyID := g.storyIDFromReceipt(receipt)
	g.tracker.Advance(requestID, PhaseConfirmed, func(r *TxRecord) {
		if receipt.BlockNumber != nil {
			r.BlockNumber = receipt.BlockNumber.Uint64()
		}
		if r.StoryID == "" && storyID != "" {
			r.StoryID = storyID
		}
	})
	log.Info("Transaction confirmed", "txHash", tx.Hash().Hex(), "gasUsed", receipt.GasUsed)
}

// storyIDFromReceipt finds the story id a createStory receipt announced.
func (g *Gateway) storyIDFromReceipt(receipt *types.Receipt) string {
	for _, l := range receipt.Logs {
		if l == nil {
			continue
		}
		ev, err := g.decoder.Decode(*l)
		if err != nil {
			continue
		}
		if created, ok := ev.(*StoryCreated); ok {
			return created.StoryId.String()
		}
	}
	return ""
}
