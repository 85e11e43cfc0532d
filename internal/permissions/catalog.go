package permissions

// Permission codes checked by the HTTP layer.
const (
	ViewProduct   = "shop.view_product"
	AddProduct    = "shop.add_product"
	ChangeProduct = "shop.change_product"
	DeleteProduct = "shop.delete_product"

	ViewOrder   = "shop.view_order"
	AddOrder    = "shop.add_order"
	ChangeOrder = "shop.change_order"
	DeleteOrder = "shop.delete_order"

	ViewArticle = "blog.view_article"
	AddArticle  = "blog.add_article"
	AddAuthor   = "blog.add_author"

	ViewProfile   = "auth.view_profile"
	ChangeProfile = "auth.change_profile"
	DeleteProfile = "auth.delete_profile"
	ViewGroup     = "auth.view_group"
	AddGroup      = "auth.add_group"
)

func init() {
	perms := []*Permission{
		{ID: ViewProduct, Description: "View products"},
		{ID: AddProduct, DependsOn: []string{ViewProduct}, Description: "Create products and import product CSV files"},
		{ID: ChangeProduct, DependsOn: []string{ViewProduct}, Description: "Edit, archive and restore own products"},
		{ID: DeleteProduct, DependsOn: []string{ChangeProduct}, Description: "Permanently delete products"},

		{ID: ViewOrder, Description: "View orders and order reports"},
		{ID: AddOrder, DependsOn: []string{ViewOrder}, Implies: []string{ViewProduct}, Description: "Create orders and import order CSV files"},
		{ID: ChangeOrder, DependsOn: []string{ViewOrder}, Description: "Edit orders"},
		{ID: DeleteOrder, DependsOn: []string{ViewOrder}, Description: "Delete orders"},

		{ID: ViewArticle, Description: "Read blog articles"},
		{ID: AddArticle, DependsOn: []string{ViewArticle}, Description: "Publish blog articles"},
		{ID: AddAuthor, Description: "Create blog authors"},

		{ID: ViewProfile, Description: "View user profiles"},
		{ID: ChangeProfile, DependsOn: []string{ViewProfile}, Description: "Edit user profiles"},
		{ID: DeleteProfile, DependsOn: []string{ViewProfile}, Description: "Delete user profiles"},
		{ID: ViewGroup, Description: "View groups"},
		{ID: AddGroup, DependsOn: []string{ViewGroup}, Description: "Create groups"},
	}

	for _, perm := range perms {
		if err := Register(perm); err != nil {
			panic(err)
		}
	}
}
