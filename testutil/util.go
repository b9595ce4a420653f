// Package testutil seeds repositories for tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/catalog"
	"github.com/ozgesheedu/ozgeshe/core/commerce"
	"github.com/ozgesheedu/ozgeshe/core/user"
	"github.com/ozgesheedu/ozgeshe/storage/database"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	isActive bool,
	subjects ...core.Subject,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		Subjects:  append([]core.Subject{}, subjects...),
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo catalog.Repository,
	owner user.User,
	title string,
	subject core.Subject,
	published bool,
	price ...core.Money,
) catalog.Course {
	t.Helper()
	tstamp := time.Now().UTC()
	course := catalog.Course{
		ID:          uuid.New().String(),
		Title:       title,
		Description: "A course about " + title,
		Level:       core.LevelA1,
		Subject:     subject,
		IsPublished: published,
		CreatedBy:   catalog.Owner{ID: owner.ID, Name: owner.Name, Role: owner.Role},
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	if len(price) > 0 {
		course.Price = price[0]
	}
	course, err := repo.CreateCourse(context.Background(), course)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return course
}

// CreateLessons appends one lesson per title to the course, in order.
func CreateLessons(t *testing.T, repo catalog.Repository, courseID string, titles ...string) []catalog.Lesson {
	t.Helper()
	lessons := make([]catalog.Lesson, 0, len(titles))
	err := repo.WithLessonsLocked(context.Background(), courseID, func(w catalog.LessonWriter) error {
		count, err := w.CountLessons(context.Background())
		if err != nil {
			return err
		}
		for i, title := range titles {
			tstamp := time.Now().UTC()
			l, err := w.CreateLesson(context.Background(), catalog.Lesson{
				ID:           uuid.New().String(),
				CourseID:     courseID,
				OrderIndex:   count + i + 1,
				Title:        title,
				Description:  "Lesson " + title,
				VideoURL:     "https://video.example.com/" + title,
				HomeworkText: "Homework for " + title,
				CreatedAt:    tstamp,
				UpdatedAt:    tstamp,
			})
			if err != nil {
				return err
			}
			lessons = append(lessons, l)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("CreateLessons() failed: %v", err)
	}
	return lessons
}

func CreateBook(t *testing.T, repo commerce.Repository, title string, price core.Money) commerce.Book {
	t.Helper()
	tstamp := time.Now().UTC()
	book, err := repo.CreateBook(context.Background(), commerce.Book{
		ID:            uuid.New().String(),
		Title:         title,
		Author:        "Author of " + title,
		Description:   "Description of " + title,
		Price:         price,
		CoverImageURL: "https://covers.example.com/" + title + ".png",
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	})
	if err != nil {
		t.Fatalf("CreateBook() failed: %v", err)
	}
	return book
}

// PrepareDB connects to the PostgreSQL test database, migrates it and empties every table.
// Tests using it are skipped unless DB_TESTS is set; connection settings come from the TEST_* env.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("DB_TESTS") == "" {
		t.Skip("DB_TESTS not set, skipping database test")
	}
	conf := core.NewConfig()

	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	_, err = db.Exec(`TRUNCATE users, course_groups, courses, lessons, enrollments, lesson_progress,
		schedule_slots, books, orders, order_items CASCADE`)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}
