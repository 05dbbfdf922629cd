package registry

import "go-sqladvisor/pkg/analyzer"

// DemoQuery is the sample statement that goes with the demo tables
const DemoQuery = `SELECT c.CustomerID, c.FirstName, c.LastName, c.Email,
       o.OrderID, o.OrderDate, o.TotalAmount
FROM Customers c
INNER JOIN Orders o ON c.CustomerID = o.CustomerID
WHERE c.LastName LIKE 'Smith%'
ORDER BY o.OrderDate DESC;`

// Demo returns the sample Customers and Orders cards
func Demo() []analyzer.IndexEntry {
	return []analyzer.IndexEntry{
		{
			Table: "Customers",
			Definition: `CREATE CLUSTERED INDEX PK_Customers ON Customers(CustomerID);
CREATE NONCLUSTERED INDEX IX_Customers_Name ON Customers(LastName, FirstName);`,
		},
		{
			Table: "Orders",
			Definition: `CREATE CLUSTERED INDEX PK_Orders ON Orders(OrderID);
CREATE NONCLUSTERED INDEX IX_Orders_CustomerID ON Orders(CustomerID) INCLUDE (OrderDate, TotalAmount);`,
		},
	}
}
