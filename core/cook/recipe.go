package cook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xeipuuv/gojsonschema"
)

// Recipe describes one processing template offered by Cook, including the
// JSON schema its parameters must satisfy
type Recipe struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	ParameterSchema json.RawMessage `json:"parameterSchema"`
}

// FetchRecipe retrieves a recipe definition from Cook. Recipes are never
// cached; Submit re-fetches on every call so schema changes take effect
// immediately.
func (c *Client) FetchRecipe(ctx context.Context, recipeID string) (*Recipe, error) {
	var recipe Recipe
	if err := c.do(ctx, "recipe", http.MethodGet, c.baseURL+"/recipes/"+recipeID, nil, &recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// ValidateParameters checks parameters against the recipe's declared schema
// and returns a ValidationError listing every violation
func (r *Recipe) ValidateParameters(parameters map[string]interface{}) error {
	schemaLoader := gojsonschema.NewBytesLoader(r.ParameterSchema)
	docLoader := gojsonschema.NewGoLoader(parameters)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return err
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}
		return &ValidationError{RecipeID: r.ID, Violations: violations}
	}
	return nil
}
