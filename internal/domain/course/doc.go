// Package course contains the Course aggregate of the learning platform.
//
// A course owns its sections; a section owns lessons and the quizzes that
// follow them; a quiz owns questions; a question owns answer options. Callers
// change the graph only through *Course methods, which check course-level
// guards (editability, unpublished-mode conflicts) before delegating to the
// child that owns the data.
//
// # Editability
//
// A course can be edited unless it is live or deleted:
//
//	(published && !unpublished) || deleted
//
// After an unpublish approval the course is editable again, but sections that
// were approved before stay frozen until the next publish approval. New
// sections added in that mode start unpublished.
//
// # Publication workflow
//
// The teacher files a PUBLISH request; an admin other than the teacher approves
// or rejects it. The admin who approved publication is the only one who may
// resolve a later UNPUBLISH request. One request may be unresolved at a time.
//
// # Events
//
// Methods never dispatch events. They are collected on the aggregate and the
// application layer drains them with PullEvents after a successful save:
//
//	if err := repo.Save(ctx, c); err != nil {
//	    return err
//	}
//	for _, e := range c.PullEvents() {
//	    _ = bus.Publish(e)
//	}
//
// # Scoring
//
// A question scores its full value when the submitted option set equals the
// correct option set, and zero otherwise. A quiz is passed when
// score/totalScore*100 reaches passScorePercentage.
//
// The package depends only on the standard library and domain/shared.
package course
