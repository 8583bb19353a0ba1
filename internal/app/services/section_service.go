package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/okaya/courseregistry/internal/app/models"
	"github.com/okaya/courseregistry/internal/app/models/dto"
	"github.com/okaya/courseregistry/internal/app/repositories"
	"github.com/okaya/courseregistry/internal/pkg/cache"
	"github.com/okaya/courseregistry/internal/pkg/logger"
	"github.com/okaya/courseregistry/internal/pkg/schedule"
)

// SectionService manages sections and reports their live availability.
// Availability reads are advisory and served through a short-TTL cache;
// the authoritative count is only ever taken under the section lock.
type SectionService struct {
	sections    *repositories.SectionRepository
	courses     *repositories.CourseRepository
	enrollments *repositories.EnrollmentRepository
	waitlist    *repositories.WaitlistRepository
	seats       *cache.SeatCache
	log         zerolog.Logger
}

func NewSectionService(
	sections *repositories.SectionRepository,
	courses *repositories.CourseRepository,
	enrollments *repositories.EnrollmentRepository,
	waitlist *repositories.WaitlistRepository,
	seats *cache.SeatCache,
) *SectionService {
	return &SectionService{
		sections:    sections,
		courses:     courses,
		enrollments: enrollments,
		waitlist:    waitlist,
		seats:       seats,
		log:         logger.With().Str("service", "section").Logger(),
	}
}

// Create adds a section for an existing course. An unparseable schedule is
// accepted but logged; such sections never participate in conflict checks.
func (s *SectionService) Create(ctx context.Context, instructorID int64, req dto.CreateSectionRequest) (*models.Section, error) {
	if _, err := s.courses.GetByID(ctx, req.CourseID); err != nil {
		return nil, err
	}

	section := &models.Section{
		CourseID:     req.CourseID,
		InstructorID: &instructorID,
		Semester:     req.Semester,
		Capacity:     req.Capacity,
		RoomNumber:   req.RoomNumber,
		Schedule:     req.Schedule,
	}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, err
	}

	if section.Schedule != "" && schedule.Parse(section.Schedule) == nil {
		s.log.Warn().Int64("section_id", section.ID).Str("schedule", section.Schedule).
			Msg("Section schedule does not parse, conflict checks will skip it")
	}

	s.log.Info().Int64("section_id", section.ID).Int64("course_id", section.CourseID).Msg("Section created")
	return section, nil
}

// Update edits a section's mutable fields. Shrinking capacity below the
// current enrollment count is allowed and simply stops new enrollments; it
// never evicts enrolled students.
func (s *SectionService) Update(ctx context.Context, id int64, req dto.UpdateSectionRequest) (*models.Section, error) {
	section, err := s.sections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	section.Semester = req.Semester
	section.Capacity = req.Capacity
	section.RoomNumber = req.RoomNumber
	section.Schedule = req.Schedule
	if err := s.sections.Update(ctx, section); err != nil {
		return nil, err
	}

	s.seats.Invalidate(ctx, id)
	s.log.Info().Int64("section_id", id).Msg("Section updated")
	return section, nil
}

// GetByID returns a section with its availability snapshot.
func (s *SectionService) GetByID(ctx context.Context, id int64) (*dto.SectionResponse, error) {
	section, err := s.sections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	availability, err := s.availability(ctx, section)
	if err != nil {
		return nil, err
	}
	return &dto.SectionResponse{Section: section, Availability: availability}, nil
}

// GetAll lists sections, optionally filtered by course, each with its
// availability snapshot.
func (s *SectionService) GetAll(ctx context.Context, courseID int64) ([]*dto.SectionResponse, error) {
	sections, err := s.sections.GetAll(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.SectionResponse, 0, len(sections))
	for _, section := range sections {
		availability, err := s.availability(ctx, section)
		if err != nil {
			return nil, err
		}
		responses = append(responses, &dto.SectionResponse{Section: section, Availability: availability})
	}
	return responses, nil
}

// availability reads counts from the seat cache, falling back to the
// database on a miss. SeatsLeft never goes negative even when a capacity
// shrink left the section over-subscribed.
func (s *SectionService) availability(ctx context.Context, section *models.Section) (*dto.SectionAvailability, error) {
	if cached, ok := s.seats.Get(ctx, section.ID); ok {
		return toAvailability(section.Capacity, cached.Enrolled, cached.Waitlisted), nil
	}

	enrolled, err := s.enrollments.CountBySection(ctx, section.ID)
	if err != nil {
		return nil, err
	}
	waitlisted, err := s.waitlist.CountBySection(ctx, section.ID)
	if err != nil {
		return nil, err
	}

	s.seats.Set(ctx, section.ID, cache.SeatAvailability{Enrolled: enrolled, Waitlisted: waitlisted})
	return toAvailability(section.Capacity, enrolled, waitlisted), nil
}

func toAvailability(capacity, enrolled, waitlisted int) *dto.SectionAvailability {
	seatsLeft := capacity - enrolled
	if seatsLeft < 0 {
		seatsLeft = 0
	}
	return &dto.SectionAvailability{Enrolled: enrolled, SeatsLeft: seatsLeft, Waitlisted: waitlisted}
}
