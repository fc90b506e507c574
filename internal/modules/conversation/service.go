// README: Conversation service; drives the per-requester booking state machine.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"carpool/internal/modules/matching"
	"carpool/internal/modules/profile"
	"carpool/internal/modules/ride"
	"carpool/internal/notify"
	"carpool/internal/observability"
	"carpool/internal/types"
)

const timeLayout = "2006-01-02 15:04"

type SessionStore interface {
	Get(ctx context.Context, id types.ID) (*State, error)
	Save(ctx context.Context, st *State) error
	Delete(ctx context.Context, id types.ID) error
}

type ProfileStore interface {
	Get(ctx context.Context, id types.ID) (*profile.Profile, error)
	Upsert(ctx context.Context, p *profile.Profile) error
}

type RideStore interface {
	ReplaceForRequester(ctx context.Context, r *ride.Request) error
	DeleteAllForRequester(ctx context.Context, requester types.ID) ([]types.ID, error)
	FindByRequester(ctx context.Context, requester types.ID) (*ride.Request, error)
	ClearMatch(ctx context.Context, requester, counterpart types.ID) error
}

type Matcher interface {
	Match(ctx context.Context, req *ride.Request) (*matching.Result, error)
}

// Geocoder is the optional map-service boundary. When nil, free-text
// locations are rejected and only location messages are accepted.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (types.Point, string, error)
	RouteLink(origin, dest types.Point) string
}

type Service struct {
	sessions SessionStore
	profiles ProfileStore
	rides    RideStore
	matcher  Matcher
	notifier notify.Notifier
	geocoder Geocoder
	loc      *time.Location

	// mu guards locks; each entry serializes events for one requester while
	// distinct requesters proceed in parallel.
	mu    sync.Mutex
	locks map[types.ID]*sync.Mutex
}

func NewService(
	sessions SessionStore,
	profiles ProfileStore,
	rides RideStore,
	matcher Matcher,
	notifier notify.Notifier,
	geocoder Geocoder,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		sessions: sessions,
		profiles: profiles,
		rides:    rides,
		matcher:  matcher,
		notifier: notifier,
		geocoder: geocoder,
		loc:      loc,
		locks:    make(map[types.ID]*sync.Mutex),
	}
}

// HandleText processes one inbound text event and sends exactly one reply.
func (s *Service) HandleText(ctx context.Context, ev notify.TextEvent) error {
	unlock := s.lock(ev.RequesterID)
	defer unlock()

	observability.EventsTotal.WithLabelValues("text").Inc()
	reply := s.textReply(ctx, ev)
	return s.notifier.Reply(ctx, ev.ReplyToken, reply)
}

// HandleLocation processes one inbound location event and sends exactly one
// reply.
func (s *Service) HandleLocation(ctx context.Context, ev notify.LocationEvent) error {
	unlock := s.lock(ev.RequesterID)
	defer unlock()

	observability.EventsTotal.WithLabelValues("location").Inc()
	reply := s.locationReply(ctx, ev)
	return s.notifier.Reply(ctx, ev.ReplyToken, reply)
}

func (s *Service) textReply(ctx context.Context, ev notify.TextEvent) string {
	switch ParseCommand(ev.Text) {
	case CmdStart:
		return s.startBooking(ctx, ev.RequesterID)
	case CmdQuery:
		return s.query(ctx, ev.RequesterID)
	case CmdCancel:
		return s.cancel(ctx, ev.RequesterID)
	}

	st, err := s.sessions.Get(ctx, ev.RequesterID)
	if err != nil {
		log.Error().Err(err).Str("requester", string(ev.RequesterID)).Msg("load session")
		return msgStoreFailure
	}
	if st == nil {
		return msgHelp
	}
	return s.collect(ctx, st, ev.Text)
}

func (s *Service) locationReply(ctx context.Context, ev notify.LocationEvent) string {
	st, err := s.sessions.Get(ctx, ev.RequesterID)
	if err != nil {
		log.Error().Err(err).Str("requester", string(ev.RequesterID)).Msg("load session")
		return msgStoreFailure
	}
	if st == nil {
		return msgNeedLocation
	}

	pt := types.Point{Lat: ev.Lat, Lng: ev.Lng}
	switch st.Step {
	case StepOrigin:
		st.Origin = &pt
		st.OriginLabel = ev.Label
		st.Step = StepDestination
		if err := s.sessions.Save(ctx, st); err != nil {
			log.Error().Err(err).Msg("save session")
			return msgStoreFailure
		}
		return msgAskDest
	case StepDestination:
		st.Destination = &pt
		st.DestinationLabel = ev.Label
		st.Step = StepTime
		if err := s.sessions.Save(ctx, st); err != nil {
			log.Error().Err(err).Msg("save session")
			return msgStoreFailure
		}
		return msgAskTime
	default:
		// A location message is unrecognized input for every other step:
		// re-prompt for the field we are actually waiting on.
		return promptFor(st.Step)
	}
}

// startBooking resets the conversation, discarding any in-flight state, and
// routes first-time requesters through the profile setup chain.
func (s *Service) startBooking(ctx context.Context, id types.ID) string {
	prev, err := s.sessions.Get(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("requester", string(id)).Msg("load session")
		return msgStoreFailure
	}

	st := &State{RequesterID: id, Step: StepOrigin}
	if _, err := s.profiles.Get(ctx, id); err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			log.Error().Err(err).Str("requester", string(id)).Msg("load profile")
			return msgStoreFailure
		}
		st.Step = StepName
		st.SetupProfile = true
	}

	if err := s.sessions.Save(ctx, st); err != nil {
		log.Error().Err(err).Str("requester", string(id)).Msg("save session")
		return msgStoreFailure
	}
	if prev == nil {
		observability.ActiveConversations.Inc()
	}
	return promptFor(st.Step)
}

func (s *Service) query(ctx context.Context, id types.ID) string {
	r, err := s.rides.FindByRequester(ctx, id)
	if errors.Is(err, ride.ErrNotFound) {
		return msgNoBooking
	}
	if err != nil {
		log.Error().Err(err).Str("requester", string(id)).Msg("find request")
		return msgStoreFailure
	}

	var b strings.Builder
	fmt.Fprintf(&b, "預約時間：%s\n", r.DepartAt.In(s.loc).Format(timeLayout))
	fmt.Fprintf(&b, "出發：%s\n抵達：%s\n", placeText(r.Origin, r.OriginLabel), placeText(r.Destination, r.DestinationLabel))
	if r.Matched() {
		fmt.Fprintf(&b, "已配對共乘對象：%s", s.displayName(ctx, *r.MatchedWith))
		if r.Share != nil && r.TotalFare != nil {
			fmt.Fprintf(&b, "\n你的車資分攤：$%d（總額 $%d）", r.Share.Amount, r.TotalFare.Amount)
		}
	} else {
		b.WriteString("目前等待配對中。")
	}
	if s.geocoder != nil {
		fmt.Fprintf(&b, "\n路線預覽：%s", s.geocoder.RouteLink(r.Origin, r.Destination))
	}
	return b.String()
}

// cancel is idempotent: with nothing active it still reports success. A
// cancelled match is repaired on the counterpart's side so no one-sided
// pairing survives, and the counterpart is notified.
func (s *Service) cancel(ctx context.Context, id types.ID) string {
	counterparts, err := s.rides.DeleteAllForRequester(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("requester", string(id)).Msg("delete requests")
		return msgStoreFailure
	}

	prev, err := s.sessions.Get(ctx, id)
	if err == nil && prev != nil {
		observability.ActiveConversations.Dec()
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		log.Error().Err(err).Str("requester", string(id)).Msg("delete session")
	}

	for _, cp := range counterparts {
		if err := s.rides.ClearMatch(ctx, cp, id); err != nil {
			log.Error().Err(err).Str("counterpart", string(cp)).Msg("repair counterpart match")
			continue
		}
		if err := s.notifier.Push(ctx, cp, msgMatchReleased); err != nil {
			log.Warn().Err(err).Str("counterpart", string(cp)).Msg("push match-released notice")
		}
	}
	return msgCancelled
}

// collect advances one field-collection step. Invalid input re-prompts the
// same field; only awaiting_time self-loops by design of the booking flow.
func (s *Service) collect(ctx context.Context, st *State, text string) string {
	switch st.Step {
	case StepName:
		name := strings.TrimSpace(text)
		if name == "" {
			return msgAskName
		}
		st.DisplayName = name
		st.Step = StepGender
		return s.advance(ctx, st, msgAskGender)

	case StepGender:
		g, ok := parseGender(text)
		if !ok {
			return msgBadGender
		}
		st.Gender = g
		st.Step = StepPetPref
		return s.advance(ctx, st, msgAskPetPref)

	case StepPetPref:
		ans, ok := parsePetAnswer(text)
		if !ok {
			return msgAskPetPref
		}
		st.HasPet = ans == answerHave
		st.PetTolerant = ans != answerRefuse
		st.Step = StepSmokePref
		return s.advance(ctx, st, msgAskSmokePref)

	case StepSmokePref:
		ans, ok := parseSmokeAnswer(text)
		if !ok {
			return msgAskSmokePref
		}
		st.Smokes = ans == answerHave
		st.SmokeTolerant = ans != answerRefuse
		if err := s.profiles.Upsert(ctx, &profile.Profile{
			ID:            st.RequesterID,
			DisplayName:   st.DisplayName,
			Gender:        st.Gender,
			PetTolerant:   st.PetTolerant,
			HasPet:        st.HasPet,
			SmokeTolerant: st.SmokeTolerant,
			Smokes:        st.Smokes,
		}); err != nil {
			log.Error().Err(err).Str("requester", string(st.RequesterID)).Msg("upsert profile")
			return msgStoreFailure
		}
		st.Step = StepOrigin
		return s.advance(ctx, st, msgAskOrigin)

	case StepOrigin, StepDestination:
		return s.collectPlaceText(ctx, st, text)

	case StepTime:
		departAt, err := time.ParseInLocation(timeLayout, strings.TrimSpace(text), s.loc)
		if err != nil {
			return msgBadTime
		}
		return s.finalize(ctx, st, departAt.UTC())
	}

	log.Warn().Str("step", string(st.Step)).Msg("conversation in unknown step; resetting")
	_ = s.sessions.Delete(ctx, st.RequesterID)
	observability.ActiveConversations.Dec()
	return msgHelp
}

// collectPlaceText resolves a free-text place through the geocoder when one
// is configured; otherwise only location messages are accepted.
func (s *Service) collectPlaceText(ctx context.Context, st *State, text string) string {
	if s.geocoder == nil {
		return promptFor(st.Step)
	}
	pt, label, err := s.geocoder.Geocode(ctx, strings.TrimSpace(text))
	if err != nil {
		log.Debug().Err(err).Msg("geocode free-text place")
		return promptFor(st.Step)
	}
	if st.Step == StepOrigin {
		st.Origin = &pt
		st.OriginLabel = label
		st.Step = StepDestination
		return s.advance(ctx, st, msgAskDest)
	}
	st.Destination = &pt
	st.DestinationLabel = label
	st.Step = StepTime
	return s.advance(ctx, st, msgAskTime)
}

// finalize persists the completed request, runs the matcher, and closes the
// conversation. Store failures leave the conversation in awaiting_time so the
// requester can retry.
func (s *Service) finalize(ctx context.Context, st *State, departAt time.Time) string {
	var prefs *ride.Preferences
	p, err := s.profiles.Get(ctx, st.RequesterID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		log.Error().Err(err).Str("requester", string(st.RequesterID)).Msg("load profile")
		return msgStoreFailure
	}
	if p != nil {
		prefs = &ride.Preferences{
			Gender:        p.Gender,
			PetTolerant:   p.PetTolerant,
			HasPet:        p.HasPet,
			SmokeTolerant: p.SmokeTolerant,
			Smokes:        p.Smokes,
		}
	}

	req := &ride.Request{
		ID:               types.ID(uuid.NewString()),
		RequesterID:      st.RequesterID,
		Origin:           *st.Origin,
		OriginLabel:      st.OriginLabel,
		Destination:      *st.Destination,
		DestinationLabel: st.DestinationLabel,
		DepartAt:         departAt,
		Prefs:            prefs,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.rides.ReplaceForRequester(ctx, req); err != nil {
		log.Error().Err(err).Str("requester", string(st.RequesterID)).Msg("persist request")
		return msgStoreFailure
	}

	if err := s.sessions.Delete(ctx, st.RequesterID); err != nil {
		log.Error().Err(err).Str("requester", string(st.RequesterID)).Msg("delete session")
	}
	observability.ActiveConversations.Dec()

	res, err := s.matcher.Match(ctx, req)
	if err != nil {
		// The booking itself is persisted; it stays pending for the next
		// matching trigger.
		log.Error().Err(err).Str("requester", string(st.RequesterID)).Msg("match request")
		return msgBookedQueued(departAt.In(s.loc))
	}
	if res == nil {
		return msgBookedQueued(departAt.In(s.loc))
	}

	counterpartName := s.displayName(ctx, res.Counterpart.RequesterID)
	pushText := fmt.Sprintf("找到共乘對象！你將與 %s 共乘，出發時間 %s，你的車資分攤：$%d。",
		s.displayName(ctx, st.RequesterID),
		res.Counterpart.DepartAt.In(s.loc).Format(timeLayout),
		res.Quote.ShareOther.Amount)
	if err := s.notifier.Push(ctx, res.Counterpart.RequesterID, pushText); err != nil {
		log.Warn().Err(err).Str("counterpart", string(res.Counterpart.RequesterID)).Msg("push match notice")
	}

	return fmt.Sprintf("預約成功並完成配對！你將與 %s 共乘，出發時間 %s，你的車資分攤：$%d（總額 $%d）。",
		counterpartName,
		departAt.In(s.loc).Format(timeLayout),
		res.Quote.ShareSelf.Amount,
		res.Quote.Total.Amount)
}

func (s *Service) advance(ctx context.Context, st *State, prompt string) string {
	if err := s.sessions.Save(ctx, st); err != nil {
		log.Error().Err(err).Str("requester", string(st.RequesterID)).Msg("save session")
		return msgStoreFailure
	}
	return prompt
}

func (s *Service) displayName(ctx context.Context, id types.ID) string {
	p, err := s.profiles.Get(ctx, id)
	if err != nil || p == nil || p.DisplayName == "" {
		return string(id)
	}
	return p.DisplayName
}

func (s *Service) lock(id types.ID) func() {
	s.mu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func promptFor(step Step) string {
	switch step {
	case StepName:
		return msgAskName
	case StepGender:
		return msgAskGender
	case StepPetPref:
		return msgAskPetPref
	case StepSmokePref:
		return msgAskSmokePref
	case StepOrigin:
		return msgAskOrigin
	case StepDestination:
		return msgAskDest
	case StepTime:
		return msgAskTime
	}
	return msgHelp
}

func placeText(p types.Point, label string) string {
	if label != "" {
		return label
	}
	return fmt.Sprintf("(%.5f, %.5f)", p.Lat, p.Lng)
}

func msgBookedQueued(departAt time.Time) string {
	return fmt.Sprintf("預約成功（%s）！目前尚無共乘對象，已為你保留預約資訊。", departAt.Format(timeLayout))
}
