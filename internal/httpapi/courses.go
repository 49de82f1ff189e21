package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/entitlement"
	"github.com/samber/lo"
)

type lessonSummary struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"titulo"`
	Position        int       `json:"orden"`
	DurationMinutes int       `json:"duracion_minutos"`
}

type lessonResponse struct {
	lessonSummary
	Content string `json:"contenido"`
}

type courseResponse struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"titulo"`
	Description   string          `json:"descripcion"`
	Level         string          `json:"nivel"`
	DurationHours int             `json:"duracion_horas"`
	Lessons       []lessonSummary `json:"lecciones"`
}

func toLessonSummary(l domain.Lesson, _ int) lessonSummary {
	return lessonSummary{
		ID:              l.ID,
		Title:           l.Title,
		Position:        l.Position,
		DurationMinutes: l.DurationMinutes,
	}
}

func toCourseResponse(c domain.Course) courseResponse {
	return courseResponse{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Level:         c.Level,
		DurationHours: c.DurationHours,
		Lessons:       lo.Map(c.Lessons, toLessonSummary),
	}
}

type accessRequest struct {
	Token string `json:"token"`
}

func (h *handler) accessCourse(c *gin.Context) {
	var req accessRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		h.failCourse(c, domain.Validationf("access token is required"))
		return
	}

	v, err := h.svc.Courses.Verify(c.Request.Context(), req.Token)
	if err != nil {
		h.failCourse(c, err)
		return
	}
	if !v.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": v.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"email":         v.Grant.Email,
		"curso":         toCourseResponse(v.Course),
		"progreso":      v.Grant.Progress,
		"completado":    v.Grant.Completed,
		"expira_en":     v.Grant.ExpiresAt,
		"ultimo_acceso": v.Grant.LastAccessAt,
	})
}

func (h *handler) lesson(c *gin.Context) {
	token := c.Query("token")
	rawLessonID := c.Query("leccionId")
	if token == "" || rawLessonID == "" {
		h.failCourse(c, domain.Validationf("token and leccionId are required"))
		return
	}

	lessonID, err := uuid.Parse(rawLessonID)
	if err != nil {
		h.failCourse(c, domain.ErrLessonNotFound)
		return
	}

	lesson, err := h.svc.Courses.Lesson(c.Request.Context(), token, lessonID)
	if err != nil {
		h.failCourse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"leccion": lessonResponse{lessonSummary: toLessonSummary(lesson, 0), Content: lesson.Content},
	})
}

type progressRequest struct {
	Token     string `json:"token"`
	Progress  *int   `json:"progreso"`
	Completed bool   `json:"completado"`
}

func (h *handler) progress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" || req.Progress == nil {
		h.failCourse(c, domain.Validationf("token and progreso are required"))
		return
	}

	p, err := h.svc.Courses.UpdateProgress(c.Request.Context(), req.Token, *req.Progress, req.Completed)
	if err != nil {
		h.failCourse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"progreso":   p.Progress,
		"completado": p.Completed,
	})
}

type myCourseResponse struct {
	courseResponse
	Token       string    `json:"token_acceso"`
	PurchasedAt time.Time `json:"fecha_compra"`
	Progress    int       `json:"progreso"`
	Completed   bool      `json:"completado"`
	ExpiresAt   time.Time `json:"expira_en"`
}

func (h *handler) myCourses(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		h.failCourse(c, domain.Validationf("email is required"))
		return
	}

	access, err := h.svc.Courses.CoursesForEmail(c.Request.Context(), email)
	if err != nil {
		h.failCourse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cursos": lo.Map(access, func(a entitlement.CourseAccess, _ int) myCourseResponse {
			return myCourseResponse{
				courseResponse: toCourseResponse(a.Course),
				Token:          a.Grant.Token,
				PurchasedAt:    a.Grant.CreatedAt,
				Progress:       a.Grant.Progress,
				Completed:      a.Grant.Completed,
				ExpiresAt:      a.Grant.ExpiresAt,
			}
		}),
	})
}
