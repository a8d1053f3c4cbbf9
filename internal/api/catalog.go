package api

import (
	"context"
	"fmt"
)

// Space is one Datasphere space (namespace).
type Space struct {
	ID           string `json:"id"`
	BusinessName string `json:"businessName,omitempty"`
}

// String renders the space for display, business name included when known.
func (s Space) String() string {
	if s.BusinessName != "" {
		return fmt.Sprintf("%s [%s]", s.ID, s.BusinessName)
	}
	return s.ID
}

// Object is one repository design object (view, table, flow, ...).
type Object struct {
	TechnicalName string `json:"technicalName"`
	Kind          string `json:"kind"`
	SpaceID       string `json:"spaceId"`
	Name          string `json:"name"`
	ID            string `json:"id,omitempty"`
}

// Spaces lists all spaces visible to the caller. The endpoint has returned
// both a bare list of space IDs and a {"spaces": [...]} wrapper across
// tenant versions; both are handled.
func (c *Client) Spaces(ctx context.Context) ([]Space, error) {
	data, err := c.get(ctx, "/dwaas-core/api/v1/spaces", nil, 0)
	if err != nil {
		return nil, err
	}

	items, ok := data.([]any)
	if !ok {
		if wrapped, isMap := data.(map[string]any); isMap {
			items, _ = wrapped["spaces"].([]any)
		}
	}

	var spaces []Space
	for _, item := range items {
		switch v := item.(type) {
		case string:
			spaces = append(spaces, Space{ID: v})
		case map[string]any:
			id := firstString(v, "spaceId", "id", "name")
			if id == "" {
				continue
			}
			spaces = append(spaces, Space{ID: id, BusinessName: stringField(v, "label")})
		default:
			c.logger.Warn("skipping unexpected space entry", "type", fmt.Sprintf("%T", item))
		}
	}

	c.logger.Info("fetched spaces", "count", len(spaces))
	return spaces, nil
}

// SpaceBusinessNames returns space ID to business name for all spaces that
// carry one.
func (c *Client) SpaceBusinessNames(ctx context.Context) (map[string]string, error) {
	params := map[string]string{
		"inSpaceManagement": "true",
		"details":           "id,name,business_name",
	}
	data, err := c.get(ctx, "/dwaas-core/repository/spaces", params, 0)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	for _, item := range resultList(data) {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := firstString(entry, "name", "qualifiedName")
		business := firstString(entry, "businessName", "business_name")
		if id != "" && business != "" {
			names[id] = business
		}
	}

	c.logger.Info("fetched space business names", "count", len(names))
	return names, nil
}

// SpaceObjects lists all design objects of a space.
func (c *Client) SpaceObjects(ctx context.Context, spaceID string) ([]Object, error) {
	data, err := c.get(ctx, "/deepsea/repository/"+spaceID+"/designObjects", nil, 0)
	if err != nil {
		return nil, err
	}

	var objects []Object
	for _, item := range resultList(data) {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		technical := firstString(entry, "technicalName", "qualified_name", "name")
		objects = append(objects, Object{
			TechnicalName: technical,
			Kind:          firstString(entry, "kind", "type"),
			SpaceID:       spaceID,
			Name:          firstString(entry, "name", "technicalName"),
			ID:            stringField(entry, "id"),
		})
	}

	c.logger.Info("fetched space objects", "space", spaceID, "count", len(objects))
	return objects, nil
}

// ObjectDefinition fetches the raw JSON definition of one object.
func (c *Client) ObjectDefinition(ctx context.Context, spaceID, objectName string) (map[string]any, error) {
	data, err := c.get(ctx, "/deepsea/repository/"+spaceID+"/objects/"+objectName, nil, 0)
	if err != nil {
		return nil, err
	}
	def, ok := data.(map[string]any)
	if !ok {
		return nil, apiErr(0, "unexpected definition format for %s", objectName)
	}
	return def, nil
}

// FindObjectID searches for an object by technical name and returns its ID.
// With spaceID empty all accessible spaces are searched; spaces the caller
// cannot read are skipped. The boolean is false when no object matched.
func (c *Client) FindObjectID(ctx context.Context, technicalName, spaceID string) (string, bool, error) {
	var spaces []Space
	if spaceID != "" {
		spaces = []Space{{ID: spaceID}}
	} else {
		var err error
		spaces, err = c.Spaces(ctx)
		if err != nil {
			return "", false, err
		}
	}

	for _, space := range spaces {
		objects, err := c.SpaceObjects(ctx, space.ID)
		if err != nil {
			c.logger.Warn("skipping unreadable space", "space", space.ID, "error", err)
			continue
		}
		for _, obj := range objects {
			if obj.TechnicalName == technicalName && obj.ID != "" {
				c.logger.Info("found object", "name", technicalName, "id", obj.ID, "space", space.ID)
				return obj.ID, true, nil
			}
		}
	}

	c.logger.Warn("object not found in any accessible space", "name", technicalName)
	return "", false, nil
}

// Users lists all tenant users.
func (c *Client) Users(ctx context.Context) ([]map[string]any, error) {
	data, err := c.get(ctx, "/dwaas-core/api/v1/users", nil, 0)
	if err != nil {
		return nil, err
	}

	var items []any
	if wrapped, ok := data.(map[string]any); ok {
		items, _ = wrapped["users"].([]any)
	} else if list, ok := data.([]any); ok {
		items = list
	}

	var users []map[string]any
	for _, item := range items {
		if user, ok := item.(map[string]any); ok {
			users = append(users, user)
		}
	}
	return users, nil
}

// resultList unwraps the common list shapes: a bare array or
// {"results": [...]}.
func resultList(data any) []any {
	if list, ok := data.([]any); ok {
		return list
	}
	if wrapped, ok := data.(map[string]any); ok {
		if list, ok := wrapped["results"].([]any); ok {
			return list
		}
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringField(m, key); s != "" {
			return s
		}
	}
	return ""
}
