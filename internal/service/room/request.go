package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/observability"
)

// GetRoleFromToken resolves the role of the token holder in this room.
func (r *Room) GetRoleFromToken(ctx context.Context, token string) (domain.Role, error) {
	info, err := r.sessionInfo(ctx, token)
	if err != nil {
		return domain.RoleUnregisteredUser, err
	}

	return roleFromSession(info), nil
}

func roleFromSession(info domain.SessionInfo) domain.Role {
	if info.IsLoggedIn {
		return domain.RoleRegisteredUser
	}

	return domain.RoleUnregisteredUser
}

func (r *Room) sessionInfo(ctx context.Context, token string) (domain.SessionInfo, error) {
	if r.deps.Sessions == nil {
		return domain.SessionInfo{}, fmt.Errorf("%w: no session service", ErrUnauthorized)
	}

	info, err := r.deps.Sessions.GetSessionInfo(ctx, token)
	if err != nil {
		return domain.SessionInfo{}, fmt.Errorf("failed to get session info: %w", err)
	}

	return info, nil
}

// ProcessUnauthorizedRequest authenticates token, checks the sender's grants
// and then applies req.
func (r *Room) ProcessUnauthorizedRequest(ctx context.Context, req domain.RoomRequest, token string) error {
	if r.deps.Sessions == nil {
		return fmt.Errorf("%w: no session service", ErrUnauthorized)
	}

	ok, err := r.deps.Sessions.Validate(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to validate token: %w", err)
	}
	if !ok {
		return ErrUnauthorized
	}

	info, err := r.sessionInfo(ctx, token)
	if err != nil {
		return err
	}

	rc := RequestContext{
		Username: info.Username,
		Role:     roleFromSession(info),
		ClientID: ClientIDFromToken(token),
		Token:    token,
	}

	if err := r.authorize(ctx, req, rc); err != nil {
		return err
	}

	return r.ProcessRequest(ctx, req, rc)
}

func (r *Room) authorize(ctx context.Context, req domain.RoomRequest, rc RequestContext) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()

	if r.unloaded {
		return ErrRoomNotFound
	}

	if perm, needed := domain.RequiredPermission(req.Type()); needed && !r.grants.HasPermission(rc.Role, perm) {
		observability.RoomRequests.WithLabelValues(string(req.Type()), "denied").Inc()
		return fmt.Errorf("%w: %s may not %s", ErrPermissionDenied, rc.Role, req.Type())
	}

	return nil
}

// ProcessRequest applies an already authorized request. Video metadata is
// resolved before the room is locked, lookups may be slow.
func (r *Room) ProcessRequest(ctx context.Context, req domain.RoomRequest, rc RequestContext) error {
	req, err := r.resolveRequest(ctx, req)
	if err != nil {
		observability.RoomRequests.WithLabelValues(string(req.Type()), "error").Inc()
		return err
	}

	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()

	if r.unloaded {
		return ErrRoomNotFound
	}

	return r.processRequest(ctx, req, rc)
}

func (r *Room) processRequest(ctx context.Context, req domain.RoomRequest, rc RequestContext) error {
	var err error
	switch req := req.(type) {
	case domain.PlaybackRequest:
		r.setPlaying(req.State)
	case domain.SeekRequest:
		r.seek(req.Value)
	case domain.SkipRequest:
		if r.dequeueNext() != domain.AdvanceNone {
			r.bumpCounter(ctx, CounterVideosSkipped, 1)
		}
	case domain.PlayNowRequest:
		r.playNow(req.Video)
	case domain.VoteRequest:
		err = r.vote(req.Video, rc.ClientID, req.Add)
	case domain.ShuffleRequest:
		r.playlist.Shuffle(nil)
	case domain.AddRequest:
		err = r.add(ctx, req)
	case domain.RemoveRequest:
		err = r.remove(req.Video)
	case domain.OrderRequest:
		err = r.playlist.Move(req.FromIdx, req.ToIdx)
	case domain.JoinRequest:
		r.join(req, rc)
	case domain.LeaveRequest:
		r.leave(rc.ClientID)
	case domain.ApplySettingsRequest:
		r.applySettings(req)
	default:
		err = fmt.Errorf("%w: %T", domain.ErrUnknownRequest, req)
	}

	result := "ok"
	if err != nil {
		result = "error"
		r.logger.DebugContext(ctx, "request failed", "type", req.Type(), "client_id", rc.ClientID, "error", err)
	}
	observability.RoomRequests.WithLabelValues(string(req.Type()), result).Inc()

	if err == nil {
		r.touch()
	}

	return err
}

func (r *Room) bumpCounter(ctx context.Context, name string, amount int64) {
	if r.deps.Counters != nil && amount > 0 {
		r.deps.Counters.BumpCounter(ctx, name, amount)
	}
}

func (r *Room) resolve(ctx context.Context, video domain.Video) (domain.Video, error) {
	if video.HasDetails() || r.deps.Metadata == nil {
		return video, nil
	}

	full, err := r.deps.Metadata.GetVideoInfo(ctx, video)
	if err != nil {
		return domain.Video{}, fmt.Errorf("failed to get video info: %w", err)
	}

	return full, nil
}

// resolveRequest returns req with the metadata of every video it carries filled in.
func (r *Room) resolveRequest(ctx context.Context, req domain.RoomRequest) (domain.RoomRequest, error) {
	switch req := req.(type) {
	case domain.PlayNowRequest:
		video, err := r.resolve(ctx, req.Video)
		if err != nil {
			return req, err
		}
		return domain.PlayNowRequest{Video: video}, nil
	case domain.AddRequest:
		var out domain.AddRequest
		if req.Video != nil {
			video, err := r.resolve(ctx, *req.Video)
			if err != nil {
				return req, err
			}
			out.Video = &video
		}
		for _, v := range req.Videos {
			video, err := r.resolve(ctx, v)
			if err != nil {
				return req, err
			}
			out.Videos = append(out.Videos, video)
		}
		return out, nil
	default:
		return req, nil
	}
}

func (r *Room) playNow(video domain.Video) {
	r.playlist.RemoveAll(video)
	if current := r.playlist.Current; current != nil && !current.Same(video) {
		r.playlist.PushFront(*current)
	}
	r.playlist.Current = &video
	r.playbackPosition = 0
	r.playbackStart = r.deps.Now()
	r.votes.Prune(r.playlist.Keys())
}

// vote only counts for videos in the playlist.
func (r *Room) vote(video domain.Video, clientID string, add bool) error {
	if _, ok := r.playlist.Keys()[video.Key()]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrVideoNotFound, video.Key())
	}

	r.votes.Set(video.Key(), clientID, add)
	if r.queueMode == domain.QueueModeVote {
		r.playlist.SortByVotes(r.votes)
	}

	return nil
}

func (r *Room) add(ctx context.Context, req domain.AddRequest) error {
	if req.Video != nil {
		if err := r.playlist.Append(*req.Video); err != nil {
			return err
		}
		r.bumpCounter(ctx, CounterVideosQueued, 1)
	}

	var added int64
	for _, video := range req.Videos {
		if err := r.playlist.Append(video); err != nil {
			if errors.Is(err, domain.ErrVideoAlreadyQueued) {
				continue
			}
			return err
		}
		added++
	}
	r.bumpCounter(ctx, CounterVideosQueued, added)

	if r.queueMode == domain.QueueModeVote {
		r.playlist.SortByVotes(r.votes)
	}

	return nil
}

func (r *Room) remove(video domain.Video) error {
	if _, err := r.playlist.Remove(video); err != nil {
		return err
	}

	r.votes.Prune(r.playlist.Keys())
	return nil
}

func (r *Room) join(req domain.JoinRequest, rc RequestContext) {
	username := req.Username
	if username == "" {
		username = rc.Username
	}

	r.members.Upsert(domain.Member{
		ClientID: rc.ClientID,
		Username: username,
		Role:     rc.Role,
		Token:    rc.Token,
	})
}

func (r *Room) leave(clientID string) {
	if _, err := r.members.RemoveByClientID(clientID); err != nil {
		r.logger.Debug("leave from unknown member", "client_id", clientID)
	}
}

func (r *Room) applySettings(req domain.ApplySettingsRequest) {
	if req.Title != nil {
		r.title = *req.Title
	}
	if req.Description != nil {
		r.description = *req.Description
	}
	if req.QueueMode != nil {
		r.queueMode = *req.QueueMode
		if r.queueMode == domain.QueueModeVote {
			r.playlist.SortByVotes(r.votes)
		}
	}
}
