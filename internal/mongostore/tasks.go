package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskmanager/internal/analytics"
	"taskmanager/internal/model"
	"taskmanager/internal/ordering"
	"taskmanager/internal/repository"
)

// taskDocument is the stored shape of a task. Ids are kept as UUID strings.
type taskDocument struct {
	ID          string     `bson:"_id"`
	User        string     `bson:"user"`
	Title       string     `bson:"title"`
	Description string     `bson:"description,omitempty"`
	Completed   bool       `bson:"completed"`
	DueDate     *time.Time `bson:"dueDate,omitempty"`
	Tags        []string   `bson:"tags"`
	Priority    string     `bson:"priority"`
	Order       int        `bson:"order"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

func toTaskDocument(t *model.Task) taskDocument {
	tags := []string(t.Tags)
	if tags == nil {
		tags = []string{}
	}
	return taskDocument{
		ID:          t.ID.String(),
		User:        t.OwnerID.String(),
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		DueDate:     t.DueDate,
		Tags:        tags,
		Priority:    string(t.Priority),
		Order:       t.Order,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d taskDocument) toModel() (model.Task, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return model.Task{}, err
	}
	owner, err := uuid.Parse(d.User)
	if err != nil {
		return model.Task{}, err
	}
	return model.Task{
		ID:          id,
		OwnerID:     owner,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		DueDate:     d.DueDate,
		Tags:        d.Tags,
		Priority:    model.Priority(d.Priority),
		Order:       d.Order,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

type TaskStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

var (
	_ ordering.Store  = (*TaskStore)(nil)
	_ analytics.Store = (*TaskStore)(nil)
)

var sortFields = map[model.SortKey]string{
	model.SortByOrder:     "order",
	model.SortByCreatedAt: "createdAt",
	model.SortByUpdatedAt: "updatedAt",
	model.SortByDueDate:   "dueDate",
	model.SortByPriority:  "priority",
	model.SortByTitle:     "title",
}

func (s *TaskStore) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *TaskStore) Create(ctx context.Context, task *model.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := s.clock()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := s.coll.InsertOne(ctx, toTaskDocument(task))
	return err
}

func (s *TaskStore) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error) {
	var doc taskDocument
	err := s.coll.FindOne(ctx, ownedBy(ownerID, id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrTaskNotFound
		}
		return nil, err
	}
	task, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskStore) List(ctx context.Context, ownerID uuid.UUID, q model.TaskQuery) ([]model.Task, error) {
	cur, err := s.coll.Find(ctx, listFilter(ownerID, q), options.Find().SetSort(listSort(q.SortBy)))
	if err != nil {
		return nil, err
	}
	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(docs))
	for _, doc := range docs {
		task, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *TaskStore) Update(ctx context.Context, task *model.Task) error {
	task.UpdatedAt = s.clock()
	result, err := s.coll.UpdateOne(ctx, ownedBy(task.OwnerID, task.ID), updateDocument(task))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrTaskNotFound
	}
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result, err := s.coll.DeleteOne(ctx, ownedBy(ownerID, id))
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrTaskNotFound
	}
	return nil
}

// MaxOrder reads the owner's task with the highest order key
func (s *TaskStore) MaxOrder(ctx context.Context, ownerID uuid.UUID) (int, bool, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "order", Value: -1}}).
		SetProjection(bson.D{{Key: "order", Value: 1}})

	var doc struct {
		Order int `bson:"order"`
	}
	err := s.coll.FindOne(ctx, bson.D{{Key: "user", Value: ownerID.String()}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return doc.Order, true, nil
}

// SetOrders sends all placements as one unordered bulk write. Each update is
// filtered by owner, so foreign ids match nothing. A failed write can leave
// some placements applied; each one only touches its own task.
func (s *TaskStore) SetOrders(ctx context.Context, ownerID uuid.UUID, placements []ordering.Placement) (int64, error) {
	if len(placements) == 0 {
		return 0, nil
	}
	result, err := s.coll.BulkWrite(ctx, reorderModels(ownerID, placements, s.clock()), options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

func (s *TaskStore) CountTasks(ctx context.Context, ownerID uuid.UUID, completed *bool) (int64, error) {
	filter := bson.D{{Key: "user", Value: ownerID.String()}}
	if completed != nil {
		filter = append(filter, bson.E{Key: "completed", Value: *completed})
	}
	return s.coll.CountDocuments(ctx, filter)
}

func (s *TaskStore) CountCreatedPerDay(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]analytics.DayCount, error) {
	cur, err := s.coll.Aggregate(ctx, weeklyPipeline(ownerID, since))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Date  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	days := make([]analytics.DayCount, len(rows))
	for i, row := range rows {
		days[i] = analytics.DayCount{Date: row.Date, Count: row.Count}
	}
	return days, nil
}

func (s *TaskStore) ListTagSets(ctx context.Context, ownerID uuid.UUID) ([][]string, error) {
	opts := options.Find().
		SetSort(listSort(model.SortByOrder)).
		SetProjection(bson.D{{Key: "tags", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{{Key: "user", Value: ownerID.String()}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []struct {
		Tags []string `bson:"tags"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	sets := make([][]string, len(docs))
	for i, doc := range docs {
		sets[i] = doc.Tags
	}
	return sets, nil
}

func ownedBy(ownerID, id uuid.UUID) bson.D {
	return bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "user", Value: ownerID.String()},
	}
}

func listFilter(ownerID uuid.UUID, q model.TaskQuery) bson.D {
	filter := bson.D{{Key: "user", Value: ownerID.String()}}
	switch q.Status {
	case model.StatusCompleted:
		filter = append(filter, bson.E{Key: "completed", Value: true})
	case model.StatusPending:
		filter = append(filter, bson.E{Key: "completed", Value: false})
	}
	if q.Tag != "" {
		filter = append(filter, bson.E{Key: "tags", Value: q.Tag})
	}
	return filter
}

func listSort(key model.SortKey) bson.D {
	field, ok := sortFields[key]
	if !ok {
		field = sortFields[model.SortByOrder]
	}
	return bson.D{{Key: field, Value: 1}, {Key: "createdAt", Value: -1}}
}

func updateDocument(task *model.Task) bson.D {
	tags := []string(task.Tags)
	if tags == nil {
		tags = []string{}
	}
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: task.Title},
		{Key: "description", Value: task.Description},
		{Key: "completed", Value: task.Completed},
		{Key: "dueDate", Value: task.DueDate},
		{Key: "tags", Value: tags},
		{Key: "priority", Value: string(task.Priority)},
		{Key: "order", Value: task.Order},
		{Key: "updatedAt", Value: task.UpdatedAt},
	}}}
}

func reorderModels(ownerID uuid.UUID, placements []ordering.Placement, now time.Time) []mongo.WriteModel {
	models := make([]mongo.WriteModel, len(placements))
	for i, p := range placements {
		models[i] = mongo.NewUpdateOneModel().
			SetFilter(ownedBy(ownerID, p.TaskID)).
			SetUpdate(bson.D{{Key: "$set", Value: bson.D{
				{Key: "order", Value: p.Order},
				{Key: "updatedAt", Value: now},
			}}})
	}
	return models
}

// weeklyPipeline groups the owner's tasks created since the given instant by
// their UTC calendar date.
func weeklyPipeline(ownerID uuid.UUID, since time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "user", Value: ownerID.String()},
			{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: since.UTC()}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$createdAt"},
				{Key: "timezone", Value: "UTC"},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}
