package progress

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/completion-engine/internal/data/repos/testutil"
	types "github.com/yungbote/completion-engine/internal/domain"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
)

func TestContentRepoTreeOrdering(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewContentRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	course := testutil.SeedCourse(t, ctx, tx, "tree")
	m2 := testutil.SeedModule(t, ctx, tx, course.ID, 2)
	m1 := testutil.SeedModule(t, ctx, tx, course.ID, 1)
	v := testutil.SeedVideo(t, ctx, tx, m1.ID, 1, testutil.PtrInt(100))
	a := testutil.SeedArticle(t, ctx, tx, m1.ID, 0)
	q, _ := testutil.SeedAssessment(t, ctx, tx, m2.ID, 0, nil, "b", "a")

	tree, err := repo.GetCourseContentTree(dbc, course.ID)
	if err != nil || tree == nil {
		t.Fatalf("GetCourseContentTree: err=%v", err)
	}
	if len(tree.Modules) != 2 || tree.Modules[0].ID != m1.ID || tree.Modules[1].ID != m2.ID {
		t.Fatalf("modules not ordered by order_index")
	}
	items := tree.Modules[0].Items
	if len(items) != 2 || items[0].ID != a.ID || items[1].ID != v.ID {
		t.Fatalf("items not ordered by order_index")
	}
	qs := tree.Modules[1].Items[0].Questions
	if tree.Modules[1].Items[0].ID != q.ID || len(qs) != 2 || qs[0].CorrectAnswer != "b" {
		t.Fatalf("questions not loaded in order: %+v", qs)
	}

	if tree, err := repo.GetCourseContentTree(dbc, uuid.New()); err != nil || tree != nil {
		t.Fatalf("unknown course: err=%v tree=%v", err, tree)
	}
}

func TestContentRepoGetItem(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewContentRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	course := testutil.SeedCourse(t, ctx, tx, "items")
	m := testutil.SeedModule(t, ctx, tx, course.ID, 0)
	item, _ := testutil.SeedAssessment(t, ctx, tx, m.ID, 0, testutil.PtrFloat(50), "x")

	got, err := repo.GetItemByID(dbc, item.ID)
	if err != nil || got == nil {
		t.Fatalf("GetItemByID: err=%v", err)
	}
	if got.Module == nil || got.Module.CourseID != course.ID {
		t.Fatalf("GetItemByID should preload the owning module")
	}
	if got.ContentType != types.ContentTypeAssessment || got.PassThreshold() != 50 {
		t.Fatalf("unexpected item: %+v", got)
	}

	withQ, err := repo.GetItemWithQuestions(dbc, item.ID)
	if err != nil || withQ == nil || len(withQ.Questions) != 1 {
		t.Fatalf("GetItemWithQuestions: err=%v item=%+v", err, withQ)
	}
	if got, err := repo.GetItemByID(dbc, uuid.New()); err != nil || got != nil {
		t.Fatalf("GetItemByID(unknown): err=%v got=%v", err, got)
	}
}
