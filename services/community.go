package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
)

// Notifier delivers an in-app notification. Implemented by NotificationService.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind models.NotificationKind, title, emoji, body string) error
}

// TaskDispatcher runs best-effort background work. Submit never blocks; false means the task
// was dropped.
type TaskDispatcher interface {
	Submit(name string, task func(ctx context.Context) error) bool
}

// CommunityService is the thin community layer that feeds the Award Engine.
type CommunityService struct {
	DB         *gorm.DB
	awards     *AwardEngine
	weights    XPWeights
	dispatcher TaskDispatcher
	notifier   Notifier
	heatmaps   HeatmapInvalidator
	log        *logger.Logger
	timeout    time.Duration
}

func NewCommunityService(db *gorm.DB, awards *AwardEngine, dispatcher TaskDispatcher, notifier Notifier, log *logger.Logger, timeout time.Duration) *CommunityService {
	return &CommunityService{
		DB:         db,
		awards:     awards,
		weights:    DefaultXPWeights,
		dispatcher: dispatcher,
		notifier:   notifier,
		log:        log.With("service", "CommunityService"),
		timeout:    timeout,
	}
}

func (s *CommunityService) SetHeatmapInvalidator(h HeatmapInvalidator) {
	s.heatmaps = h
}

type PostInput struct {
	Type      models.PostType `json:"type"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	ChapterID *string         `json:"chapter_id,omitempty"`
}

type LikeResult struct {
	Liked   bool        `json:"liked"`   // a new like row was written
	Awarded bool        `json:"awarded"` // the author received like_received
	Award   AwardResult `json:"-"`
}

// CreatePost stores a post and awards post_created (showcase_created for showcases).
// Review posts award nothing; they come from chapter completion.
func (s *CommunityService) CreatePost(ctx context.Context, authorID string, in PostInput) (*models.Post, AwardResult, error) {
	if !in.Type.Valid() {
		return nil, AwardResult{}, fmt.Errorf("%w: post type %q", ErrInvalidInput, in.Type)
	}
	title := cleanText(in.Title)
	if title == "" {
		return nil, AwardResult{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	post := newPost(authorID, in.Type, title, cleanText(in.Body), in.ChapterID)
	var award AwardResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		action, amount := s.postAward(in.Type)
		if amount == 0 {
			return nil
		}
		var err error
		award, err = s.awards.AwardTx(ctx, tx, authorID, action, amount, post.ID)
		return err
	})
	if err != nil {
		return nil, AwardResult{}, storeErr("create post", err)
	}
	if award.Applied {
		s.invalidate(authorID)
	}
	return post, award, nil
}

func (s *CommunityService) postAward(t models.PostType) (models.XPAction, int64) {
	switch t {
	case models.PostTypeShowcase:
		return models.ActionShowcaseCreated, s.weights.ShowcaseCreated
	case models.PostTypeReview:
		return "", 0
	default:
		return models.ActionPostCreated, s.weights.PostCreated
	}
}

// createReviewPostTx writes the review post produced by a chapter completion.
func (s *CommunityService) createReviewPostTx(tx *gorm.DB, authorID string, chapter models.Chapter, text string) (*models.Post, error) {
	body := cleanText(text)
	if body == "" {
		body = fmt.Sprintf("I just completed chapter %s: %s. 🥋", chapter.ID, chapter.Title)
	}
	chapterID := chapter.ID
	post := newPost(authorID, models.PostTypeReview, fmt.Sprintf("Review: %s", chapter.Title), body, &chapterID)
	if err := tx.Create(post).Error; err != nil {
		return nil, fmt.Errorf("create review post: %w", err)
	}
	return post, nil
}

// CreateComment stores a comment (or reply) and awards comment_created.
func (s *CommunityService) CreateComment(ctx context.Context, authorID, postID, body string) (*models.Comment, AwardResult, error) {
	body = cleanText(body)
	if body == "" {
		return nil, AwardResult{}, fmt.Errorf("%w: comment body is required", ErrInvalidInput)
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	comment := &models.Comment{ID: uuid.NewString(), PostID: postID, AuthorID: authorID, Body: body}
	var award AwardResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findPost(tx, postID); err != nil {
			return err
		}
		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		var err error
		award, err = s.awards.AwardTx(ctx, tx, authorID, models.ActionCommentCreated, s.weights.CommentCreated, comment.ID)
		return err
	})
	if err != nil {
		return nil, AwardResult{}, storeErr("create comment", err)
	}
	s.invalidate(authorID)
	return comment, award, nil
}

// LikePost records a like. The author gets like_received only for a new like by someone else.
func (s *CommunityService) LikePost(ctx context.Context, likerID, postID string) (LikeResult, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var (
		res  LikeResult
		post *models.Post
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if post, err = findPost(tx, postID); err != nil {
			return err
		}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostLike{PostID: postID, UserID: likerID})
		if ins.Error != nil {
			return fmt.Errorf("insert like: %w", ins.Error)
		}
		res.Liked = ins.RowsAffected == 1
		if !res.Liked || post.AuthorID == likerID {
			return nil
		}
		res.Award, err = s.awards.AwardTx(ctx, tx, post.AuthorID, models.ActionLikeReceived, s.weights.LikeReceived, postID)
		res.Awarded = err == nil && res.Award.Applied
		return err
	})
	if err != nil {
		return LikeResult{}, storeErr("like post", err)
	}
	if res.Awarded {
		s.invalidate(post.AuthorID)
		s.notify(post.AuthorID, models.NotificationLikeReceived, "Someone liked your post", "❤️", post.Title)
	}
	return res, nil
}

// UnlikePost removes the like row. like_received is not reversed.
func (s *CommunityService) UnlikePost(ctx context.Context, likerID, postID string) (bool, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	res := s.DB.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, likerID).
		Delete(&models.PostLike{})
	if res.Error != nil {
		return false, storeErr("unlike post", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AcceptAnswer marks replyID as the accepted answer of a question post. Only the question
// author may accept. The reply author earns answer_accepted once per reply, never for
// accepting their own reply. Switching to another reply revokes the previous award first.
func (s *CommunityService) AcceptAnswer(ctx context.Context, actorID, postID, replyID string) (AwardResult, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var (
		res     AwardResult
		reply   models.Comment
		revoked string
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.ownedQuestion(tx, actorID, postID)
		if err != nil {
			return err
		}
		if err := tx.Where("id = ? AND post_id = ?", replyID, postID).First(&reply).Error; err != nil {
			return err
		}

		if prev := post.AcceptedCommentID; prev != nil && *prev != replyID {
			if revoked, err = s.revokeAcceptedTx(ctx, tx, *prev); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			Update("accepted_comment_id", replyID).Error; err != nil {
			return fmt.Errorf("set accepted reply: %w", err)
		}

		if reply.AuthorID == post.AuthorID {
			return nil
		}
		res, err = s.awards.AwardTx(ctx, tx, reply.AuthorID, models.ActionAnswerAccepted, s.weights.AnswerAccepted, replyID)
		return err
	})
	if err != nil {
		return AwardResult{}, storeErr("accept answer", err)
	}
	s.invalidate(revoked)
	if res.Applied {
		s.invalidate(reply.AuthorID)
		s.notify(reply.AuthorID, models.NotificationAnswerAccepted, "Your answer was accepted", "✅", "")
	}
	return res, nil
}

// UnacceptAnswer clears the accepted reply and revokes its award.
func (s *CommunityService) UnacceptAnswer(ctx context.Context, actorID, postID string) error {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	var revoked string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.ownedQuestion(tx, actorID, postID)
		if err != nil {
			return err
		}
		if post.AcceptedCommentID == nil {
			return nil
		}
		if revoked, err = s.revokeAcceptedTx(ctx, tx, *post.AcceptedCommentID); err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			Update("accepted_comment_id", nil).Error
	})
	if err != nil {
		return storeErr("unaccept answer", err)
	}
	s.invalidate(revoked)
	return nil
}

func (s *CommunityService) ownedQuestion(tx *gorm.DB, actorID, postID string) (*models.Post, error) {
	post, err := findPost(tx, postID)
	if err != nil {
		return nil, err
	}
	if post.Type != models.PostTypeQuestion {
		return nil, fmt.Errorf("%w: post %s is not a question", ErrInvalidInput, postID)
	}
	if post.AuthorID != actorID {
		return nil, ErrForbidden
	}
	return post, nil
}

// revokeAcceptedTx revokes the award for replyID and returns its author when XP was refunded.
func (s *CommunityService) revokeAcceptedTx(ctx context.Context, tx *gorm.DB, replyID string) (string, error) {
	var prev models.Comment
	if err := tx.Where("id = ?", replyID).First(&prev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	res, err := s.awards.RevokeAnswerAcceptedTx(ctx, tx, replyID, prev.AuthorID)
	if err != nil || !res.Applied {
		return "", err
	}
	return prev.AuthorID, nil
}

func (s *CommunityService) invalidate(userID string) {
	if s.heatmaps != nil && userID != "" {
		s.heatmaps.InvalidateHeatmap(userID)
	}
}

func (s *CommunityService) notify(userID string, kind models.NotificationKind, title, emoji, body string) {
	if s.dispatcher == nil || s.notifier == nil {
		return
	}
	s.dispatcher.Submit("notify:"+string(kind), func(ctx context.Context) error {
		return s.notifier.Notify(ctx, userID, kind, title, emoji, body)
	})
}

func findPost(tx *gorm.DB, postID string) (*models.Post, error) {
	var post models.Post
	if err := tx.Where("id = ?", postID).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func newPost(authorID string, t models.PostType, title, body string, chapterID *string) *models.Post {
	id := uuid.NewString()
	return &models.Post{
		ID:        id,
		AuthorID:  authorID,
		Type:      t,
		Title:     title,
		Slug:      postSlug(title, id),
		Body:      body,
		ChapterID: chapterID,
	}
}

// postSlug is the title slug plus a short id suffix so equal titles stay distinct.
func postSlug(title, id string) string {
	base := slug.Make(title)
	if len(base) > 120 {
		base = strings.TrimRight(base[:120], "-")
	}
	suffix := strings.ReplaceAll(id, "-", "")[:8]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
